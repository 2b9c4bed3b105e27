package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"visadesk/internal/checklist"
	"visadesk/internal/rules"
)

// SeedBootstrapRuleSet creates and approves a starter rule set for Germany
// tourist visas so a fresh instance can serve rules-backed checklists
// immediately.
func SeedBootstrapRuleSet(s Store) (*rules.RuleSet, error) {
	ctx := context.Background()

	ruleSet := &rules.RuleSet{
		ID:          uuid.New(),
		CountryCode: "DE",
		VisaType:    "tourist",
		Version:     1,
		Documents: []rules.RuleDocument{
			{
				DocumentID:     "passport",
				Category:       checklist.CategoryRequired,
				IsCoreRequired: true,
				Name: checklist.LocalizedText{
					EN: "Valid Passport",
					RU: "Действующий загранпаспорт",
					UZ: "Amaldagi xorijiy pasport",
				},
				Description: checklist.LocalizedText{
					EN: "Passport valid for at least 6 months beyond the intended stay, with two blank pages.",
					RU: "Паспорт, действительный не менее 6 месяцев после окончания поездки, с двумя пустыми страницами.",
					UZ: "Safar tugaganidan keyin kamida 6 oy amal qiladigan, ikki bo'sh sahifali pasport.",
				},
				WhereToObtain: checklist.LocalizedText{
					EN: "State migration service",
					RU: "Государственная миграционная служба",
					UZ: "Davlat migratsiya xizmati",
				},
				Priority: 1,
			},
			{
				DocumentID:     "travel_insurance",
				Category:       checklist.CategoryRequired,
				IsCoreRequired: true,
				Name: checklist.LocalizedText{
					EN: "Travel Medical Insurance",
					RU: "Туристическая медицинская страховка",
					UZ: "Sayohat tibbiy sug'urtasi",
				},
				Description: checklist.LocalizedText{
					EN: "Schengen-compliant insurance with at least EUR 30,000 coverage for the whole stay.",
					RU: "Страховка, соответствующая шенгенским требованиям, с покрытием от 30 000 евро на весь срок.",
					UZ: "Kamida 30 000 yevro qoplamali, butun muddat uchun Shengen talablariga mos sug'urta.",
				},
				WhereToObtain: checklist.LocalizedText{
					EN: "Any licensed insurance provider",
					RU: "Любая лицензированная страховая компания",
					UZ: "Istalgan litsenziyalangan sug'urta kompaniyasi",
				},
				Priority: 2,
			},
			{
				DocumentID:         "business_registration",
				Category:           checklist.CategoryRequired,
				IsConditional:      true,
				ConditionPredicate: "employment.currentStatus in {self_employed, entrepreneur}",
				Name: checklist.LocalizedText{
					EN: "Business Registration Certificate",
					RU: "Свидетельство о регистрации бизнеса",
					UZ: "Biznesni ro'yxatdan o'tkazish guvohnomasi",
				},
				Description: checklist.LocalizedText{
					EN: "Proof of self-employment: registration certificate and recent tax declarations.",
					RU: "Подтверждение самозанятости: свидетельство о регистрации и последние налоговые декларации.",
					UZ: "O'z-o'zini bandlik isboti: ro'yxatdan o'tish guvohnomasi va so'nggi soliq deklaratsiyalari.",
				},
				WhereToObtain: checklist.LocalizedText{
					EN: "Tax committee public services",
					RU: "Госуслуги налогового комитета",
					UZ: "Soliq qo'mitasi davlat xizmatlari",
				},
				Priority: 5,
			},
			{
				DocumentID:         "marriage_certificate",
				Category:           checklist.CategoryHighlyRecommended,
				IsConditional:      true,
				ConditionPredicate: "familyAndTies.maritalStatus == married && travel.travelsAlone == true",
				Name: checklist.LocalizedText{
					EN: "Marriage Certificate",
					RU: "Свидетельство о браке",
					UZ: "Nikoh guvohnomasi",
				},
				Description: checklist.LocalizedText{
					EN: "Demonstrates family ties at home when traveling without your spouse.",
					RU: "Подтверждает семейные связи на родине при поездке без супруга.",
					UZ: "Turmush o'rtog'isiz sayohatda vatandagi oilaviy rishtalarni tasdiqlaydi.",
				},
				WhereToObtain: checklist.LocalizedText{
					EN: "Civil registry office",
					RU: "Отдел ЗАГС",
					UZ: "FHDYo bo'limi",
				},
				Priority: 6,
			},
			{
				DocumentID:         "extended_bank_statement",
				Category:           checklist.CategoryRequired,
				IsConditional:      true,
				ConditionPredicate: "travel.durationBucket in {medium, long}",
				Name: checklist.LocalizedText{
					EN: "Extended Bank Statement",
					RU: "Расширенная банковская выписка",
					UZ: "Kengaytirilgan bank ko'chirmasi",
				},
				Description: checklist.LocalizedText{
					EN: "Six months of bank statements proving funds for an extended stay.",
					RU: "Выписка за шесть месяцев, подтверждающая средства для длительного пребывания.",
					UZ: "Uzoq muddatli turar uchun mablag'ni tasdiqlovchi olti oylik bank ko'chirmasi.",
				},
				WhereToObtain: checklist.LocalizedText{
					EN: "Your bank branch or mobile app",
					RU: "Отделение банка или мобильное приложение",
					UZ: "Bank filiali yoki mobil ilova",
				},
				Priority: 7,
			},
		},
		FinancialRequirements: "Approximately EUR 45 per day of stay.",
		CreatedAt:             time.Now(),
	}

	if err := s.Create(ctx, ruleSet); err != nil {
		return nil, err
	}
	if err := s.Approve(ctx, ruleSet.ID); err != nil {
		return nil, err
	}
	ruleSet.IsApproved = true
	return ruleSet, nil
}
