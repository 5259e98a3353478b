package entity

// District groups documents and extractions under a unique name.
type District struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
}

// Document is one uploaded file. RawText is the already-decoded plain text;
// it is kept so the document can be re-extracted later.
type Document struct {
	ID         int64  `json:"id"`
	DistrictID int64  `json:"district_id"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path"`
	UploadDate string `json:"upload_date"` // YYYY-MM-DD
	UploadedBy string `json:"uploaded_by"`
	RawText    string `json:"-"`
}

// Extraction is one persisted snapshot for a (district, sector, sub-category)
// key. At most one row per key has IsLatest set; superseded rows are kept for
// history queries.
type Extraction struct {
	ID          int64  `json:"id"`
	DocumentID  int64  `json:"document_id"`
	DistrictID  int64  `json:"district_id"`
	SectorName  string `json:"sector_name"`
	SubCategory string `json:"sub_category"`
	DataJSON    []byte `json:"-"`
	VersionDate string `json:"version_date"` // YYYY-MM-DD
	IsLatest    bool   `json:"is_latest"`
	FileName    string `json:"file_name,omitempty"` // joined from documents
	UploadedBy  string `json:"uploaded_by,omitempty"`
}

// Record decodes the stored payload.
func (e *Extraction) Record() (*SubCategoryRecord, error) {
	return UnmarshalRecord(e.DataJSON)
}
