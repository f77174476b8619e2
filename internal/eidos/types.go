package eidos

import (
	"encoding/json"
	"strconv"
	"strings"

	"eidoscope/internal/taxon"
)

// ID is a registry identifier. EIDOS serializes IDs as numbers in some views
// and as strings in others.
type ID string

// UnmarshalJSON accepts numeric and string identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ID(strings.TrimSpace(s))
	return nil
}

func (id ID) String() string { return string(id) }

// TaxonRecord is one row of a name search or ID lookup.
type TaxonRecord struct {
	TaxonID  ID     `json:"taxonid"`
	Name     string `json:"name"`
	NameType string `json:"nametype"`
}

// Accepted reports whether the record is the accepted/valid name rather than
// a synonym.
func (r TaxonRecord) Accepted() bool {
	nt := strings.ToLower(taxon.Fold(r.NameType))
	return strings.Contains(nt, "aceptado") || strings.Contains(nt, "valido")
}

// LegalStatus is one legal listing of a taxon.
type LegalStatus struct {
	Scope   string `json:"ambito"`
	Status  string `json:"estadolegal"`
	Dataset string `json:"dataset"`
	Region  string `json:"ccaa"`
	Current int    `json:"idvigente"`
}

// IsCurrent reports whether the listing is in force.
func (s LegalStatus) IsCurrent() bool {
	return s.Current == 1
}

// ConservationStatus is one threat assessment of a taxon.
type ConservationStatus struct {
	Scope    string `json:"ambito"`
	Code     string `json:"codigocategoria"`
	Category string `json:"categoria"`
	Dataset  string `json:"dataset"`
	Year     ID     `json:"anio"`
	Current  int    `json:"idvigente"`
}

// IsCurrent reports whether the assessment is the one in force.
func (s ConservationStatus) IsCurrent() bool {
	return s.Current == 1
}

// TaxonomyRow is one row of the taxonomy view.
type TaxonomyRow struct {
	TaxonID        ID     `json:"taxonid"`
	TaxonomicGroup string `json:"taxonomicgroup"`
	Kingdom        string `json:"kingdom"`
	Family         string `json:"family"`
}

// CommonName is one vernacular name of a taxon.
type CommonName struct {
	TaxonID    ID     `json:"idtaxon"`
	Name       string `json:"nombre_comun"`
	LanguageID int    `json:"ididioma"`
	Preferred  bool   `json:"espreferente"`
}

// SpanishLanguageID is the EIDOS language code for Castilian Spanish.
const SpanishLanguageID = 1

// PreferredCommonName picks the preferred Spanish name, then any Spanish name,
// then the first name in any language.
func PreferredCommonName(names []CommonName) string {
	var spanish []CommonName
	for _, n := range names {
		if n.LanguageID == SpanishLanguageID && strings.TrimSpace(n.Name) != "" {
			spanish = append(spanish, n)
		}
	}
	for _, n := range spanish {
		if n.Preferred {
			return strings.TrimSpace(n.Name)
		}
	}
	if len(spanish) > 0 {
		return strings.TrimSpace(spanish[0].Name)
	}
	for _, n := range names {
		if name := strings.TrimSpace(n.Name); name != "" {
			return name
		}
	}
	return ""
}

// ChecklistEntry is one row of the reference checklist.
type ChecklistEntry struct {
	TaxonID      ID     `json:"idtaxon"`
	Genus        string `json:"genus"`
	Species      string `json:"species"`
	Subspecies   string `json:"subspecies"`
	AcceptedName string `json:"acceptedname"`
	NameType     string `json:"nametype"`
}

// FullName joins genus, species, and subspecies.
func (e ChecklistEntry) FullName() string {
	return strings.Join(strings.Fields(e.Genus+" "+e.Species+" "+e.Subspecies), " ")
}

// Accepted reports whether the entry is an accepted name. Entries without a
// name type are treated as accepted when they match their accepted name.
func (e ChecklistEntry) Accepted() bool {
	if strings.TrimSpace(e.NameType) != "" {
		return TaxonRecord{NameType: e.NameType}.Accepted()
	}
	accepted := strings.TrimSpace(e.AcceptedName)
	return accepted == "" || taxon.Normalize(accepted) == taxon.Normalize(e.FullName())
}

func idParam(id string) string {
	id = strings.TrimSpace(id)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return id
}
