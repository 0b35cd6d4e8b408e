package models

// SourceFile describes one imported CSV file in the ledger directory
type SourceFile struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Rows    int    `json:"rows"`
	MinDate string `json:"min_date,omitempty"`
	MaxDate string `json:"max_date,omitempty"`
}
