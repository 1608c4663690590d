package divisions

import (
	"fmt"
	"strings"
	"time"

	"liftdb/internal/names"
)

// InactiveSuffix marks pre-changeover division listings on the ranking site.
const InactiveSuffix = " (Inactive)"

// Changeover is the date the ranking site renamed its division listings to
// the current weight classes, moving the previous classes to "(Inactive)"
// names.
var Changeover = time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC)

// currentClasses are the weight classes in force since the changeover.
var currentClasses = map[string][]string{
	"women": {"45kg", "49kg", "55kg", "59kg", "64kg", "71kg", "76kg", "81kg", "87kg", "87+kg"},
	"men":   {"55kg", "61kg", "67kg", "73kg", "81kg", "89kg", "96kg", "102kg", "109kg", "109+kg"},
}

// legacyClasses were retired at the changeover and now appear only under
// "(Inactive)" listings.
var legacyClasses = map[string][]string{
	"women": {"48kg", "53kg", "58kg", "63kg", "69kg", "75kg", "90kg", "90+kg"},
	"men":   {"56kg", "62kg", "69kg", "77kg", "85kg", "94kg", "105kg", "105+kg"},
}

// Code identifies one external ranking listing.
type Code string

// For builds the ordered division-code variants to query for a result row.
// The variant implied by the meet date comes first; the other side of the
// changeover is the fallback. An unknown age category or weight class yields
// an error so callers can skip the tier instead of querying nonsense.
func For(ageCategory, weightClass string, meetDate time.Time) ([]Code, error) {
	ageCategory = names.Collapse(ageCategory)
	weightClass = normalizeClass(weightClass)
	if ageCategory == "" {
		return nil, fmt.Errorf("age category required")
	}
	if weightClass == "" {
		return nil, fmt.Errorf("weight class required")
	}

	active := Code(ageCategory + " " + weightClass)
	inactive := Code(ageCategory + " " + weightClass + InactiveSuffix)

	if meetDate.IsZero() {
		return nil, fmt.Errorf("meet date required")
	}
	if meetDate.Before(Changeover) {
		return []Code{inactive, active}, nil
	}
	return []Code{active, inactive}, nil
}

// KnownClass reports whether a weight class is a recognized current or legacy
// class for the given gender. Gender is matched loosely ("W", "women",
// "Female" all map to women). Unknown genders accept any recognized class.
func KnownClass(gender, weightClass string) bool {
	weightClass = normalizeClass(weightClass)
	if weightClass == "" {
		return false
	}
	keys := genderKeys(gender)
	for _, key := range keys {
		for _, class := range currentClasses[key] {
			if class == weightClass {
				return true
			}
		}
		for _, class := range legacyClasses[key] {
			if class == weightClass {
				return true
			}
		}
	}
	return false
}

func genderKeys(gender string) []string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "w", "f", "women", "woman", "female", "women's":
		return []string{"women"}
	case "m", "men", "man", "male", "men's":
		return []string{"men"}
	default:
		return []string{"women", "men"}
	}
}

// normalizeClass canonicalizes weight-class spellings: "64 kg" and "64KG"
// become "64kg", "+87kg" becomes "87+kg".
func normalizeClass(class string) string {
	class = strings.ToLower(strings.ReplaceAll(names.Collapse(class), " ", ""))
	if class == "" {
		return ""
	}
	if !strings.HasSuffix(class, "kg") {
		class += "kg"
	}
	if strings.HasPrefix(class, "+") {
		class = strings.TrimPrefix(class, "+")
		class = strings.TrimSuffix(class, "kg") + "+kg"
	}
	return class
}
