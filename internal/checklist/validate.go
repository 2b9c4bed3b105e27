package checklist

import (
	"fmt"
	"sort"
)

// Band is the acceptable final item count range.
type Band struct {
	Min int
	Max int
}

// Contains reports whether n falls inside the band.
func (b Band) Contains(n int) bool {
	return n >= b.Min && n <= b.Max
}

// BandError signals an out-of-band item count. The coordinator retries
// enrichment exactly once with the strict instruction before giving up.
type BandError struct {
	Count int
	Band  Band
}

func (e *BandError) Error() string {
	return fmt.Sprintf("checklist has %d items, expected between %d and %d", e.Count, e.Band.Min, e.Band.Max)
}

// FatalValidationError means the enriched output is irreconcilable with the
// base set. The coordinator maps it to status=failed; nothing partial is ever
// persisted.
type FatalValidationError struct {
	Reason string
}

func (e *FatalValidationError) Error() string {
	return "fatal validation error: " + e.Reason
}

// ValidateAndFix enforces that enriched output is a superset of the base
// floor and repairs minor deviations:
//
//   - base items are matched by document id case-insensitively; a missing
//     base item is synthesized from the base entry rather than failing;
//   - duplicate document ids collapse to the first occurrence;
//   - invalid categories are restored from the base entry when one exists,
//     otherwise defaulted to optional;
//   - empty locale fields are backfilled from the primary (EN) locale.
//
// An out-of-band final count returns *BandError so the caller can retry; an
// item with no name or description in any locale returns
// *FatalValidationError.
func ValidateAndFix(enriched, base []Item, band Band) ([]Item, error) {
	baseIndex := IndexByID(base)

	seen := make(map[string]bool, len(enriched))
	fixed := make([]Item, 0, len(enriched)+len(base))

	for _, item := range enriched {
		key := NormalizeID(item.DocumentID)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		baseItem, fromBase := baseIndex[key]

		if !item.Category.IsValid() {
			if fromBase {
				item.Category = baseItem.Category
			} else {
				item.Category = CategoryOptional
			}
		}

		// Base flags are authoritative; the model cannot demote a core item.
		if fromBase {
			item.IsCoreRequired = baseItem.IsCoreRequired
			if baseItem.IsCoreRequired {
				item.Category = CategoryRequired
			}
		}

		if err := repairLocales(&item, baseItem, fromBase); err != nil {
			return nil, err
		}

		fixed = append(fixed, item)
	}

	// Synthesize any base item the model dropped.
	for _, baseItem := range base {
		key := NormalizeID(baseItem.DocumentID)
		if !seen[key] {
			seen[key] = true
			item := baseItem
			item.Name.Backfill()
			item.Description.Backfill()
			item.WhereToObtain.Backfill()
			fixed = append(fixed, item)
		}
	}

	sort.SliceStable(fixed, func(i, j int) bool {
		if fixed[i].Priority != fixed[j].Priority {
			return fixed[i].Priority < fixed[j].Priority
		}
		return NormalizeID(fixed[i].DocumentID) < NormalizeID(fixed[j].DocumentID)
	})

	if !band.Contains(len(fixed)) {
		return nil, &BandError{Count: len(fixed), Band: band}
	}

	return fixed, nil
}

// repairLocales backfills missing locale strings, borrowing from the base
// entry when the model returned nothing usable.
func repairLocales(item *Item, baseItem Item, fromBase bool) error {
	if item.Name.Empty() && fromBase {
		item.Name = baseItem.Name
	}
	if item.Description.Empty() && fromBase {
		item.Description = baseItem.Description
	}
	if item.WhereToObtain.Empty() && fromBase {
		item.WhereToObtain = baseItem.WhereToObtain
	}

	if item.Name.Empty() {
		return &FatalValidationError{Reason: fmt.Sprintf("item %q has no name in any locale", item.DocumentID)}
	}
	if item.Description.Empty() {
		return &FatalValidationError{Reason: fmt.Sprintf("item %q has no description in any locale", item.DocumentID)}
	}

	item.Name.Backfill()
	item.Description.Backfill()
	item.WhereToObtain.Backfill()
	return nil
}

// CorePreserved verifies the core-preservation invariant: every core id from
// the base floor appears among the final item ids.
func CorePreserved(final, base []Item) bool {
	finalIDs := make(map[string]bool, len(final))
	for _, item := range final {
		finalIDs[NormalizeID(item.DocumentID)] = true
	}
	for _, item := range base {
		if item.IsCoreRequired && !finalIDs[NormalizeID(item.DocumentID)] {
			return false
		}
	}
	return true
}
