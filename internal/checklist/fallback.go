package checklist

// FallbackBase returns the universal document skeleton used as the anchor in
// generic mode, when no approved rule set exists for the destination pair.
// These are not treated as core-required: generic mode carries no
// preservation floor, the skeleton only keeps the prompt grounded.
func FallbackBase(visaType string) []Item {
	items := []Item{
		{
			DocumentID: "passport",
			Category:   CategoryRequired,
			Name: LocalizedText{
				EN: "Valid Passport",
				RU: "Действующий загранпаспорт",
				UZ: "Amaldagi xorijiy pasport",
			},
			Description: LocalizedText{
				EN: "Passport valid for at least 6 months beyond the intended stay.",
				RU: "Паспорт, действительный не менее 6 месяцев после окончания поездки.",
				UZ: "Safar tugaganidan keyin kamida 6 oy amal qiladigan pasport.",
			},
			Priority: 1,
		},
		{
			DocumentID: "application_form",
			Category:   CategoryRequired,
			Name: LocalizedText{
				EN: "Visa Application Form",
				RU: "Анкета на визу",
				UZ: "Viza ariza shakli",
			},
			Description: LocalizedText{
				EN: "Completed and signed visa application form.",
				RU: "Заполненная и подписанная визовая анкета.",
				UZ: "To'ldirilgan va imzolangan viza anketasi.",
			},
			Priority: 2,
		},
		{
			DocumentID: "photo",
			Category:   CategoryRequired,
			Name: LocalizedText{
				EN: "Passport Photo",
				RU: "Фотография паспортного формата",
				UZ: "Pasport formatidagi surat",
			},
			Description: LocalizedText{
				EN: "Recent passport-sized photograph meeting consular requirements.",
				RU: "Недавняя фотография паспортного формата по консульским требованиям.",
				UZ: "Konsullik talablariga mos yaqinda olingan pasport formatidagi surat.",
			},
			Priority: 3,
		},
		{
			DocumentID: "financial_proof",
			Category:   CategoryRequired,
			Name: LocalizedText{
				EN: "Financial Proof",
				RU: "Подтверждение финансов",
				UZ: "Moliyaviy ta'minot isboti",
			},
			Description: LocalizedText{
				EN: "Bank statements or other proof of sufficient funds.",
				RU: "Банковские выписки или иное подтверждение достаточных средств.",
				UZ: "Bank ko'chirmalari yoki yetarli mablag'ning boshqa isboti.",
			},
			Priority: 4,
		},
	}

	if visaType == "student" {
		items = append(items, Item{
			DocumentID: "acceptance_letter",
			Category:   CategoryRequired,
			Name: LocalizedText{
				EN: "Acceptance Letter",
				RU: "Письмо о зачислении",
				UZ: "Qabul xati",
			},
			Description: LocalizedText{
				EN: "Letter of acceptance from the educational institution.",
				RU: "Письмо о зачислении из учебного заведения.",
				UZ: "Ta'lim muassasasidan qabul qilinganlik xati.",
			},
			Priority: 5,
		})
	}

	return items
}
