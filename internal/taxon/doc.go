// Package taxon normalizes free-text scientific names for comparison.
//
// Normalize folds diacritics, case, and whitespace and strips author
// citations once a binomial is recognized, so "Lynx pardinus (Temminck, 1827)"
// and "lynx  PARDINUS" compare equal. Parse exposes the recognized parts.
// Both functions are pure and safe for concurrent use.
package taxon
