package models

// CrimeType is one entry of the ISTAT crime taxonomy
type CrimeType struct {
	Code     string `json:"code" yaml:"code"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category,omitempty" yaml:"category"`
}
