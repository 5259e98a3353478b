package entity

import "encoding/json"

// ActionPoint is one named fact extracted for a sub-category. Identity within
// a record is ActionName (case-sensitive); two points with the same name are
// the same fact and must be merged, never duplicated.
type ActionPoint struct {
	ActionName            string   `json:"action_name"`
	CurrentStatus         *string  `json:"current_status"`
	AchievementPercentage *float64 `json:"achievement_percentage"`
	DataSource            *string  `json:"data_source"`
	Remarks               *string  `json:"remarks"`
}

// Clone returns a deep copy of the action point.
func (a ActionPoint) Clone() ActionPoint {
	out := ActionPoint{ActionName: a.ActionName}
	if a.CurrentStatus != nil {
		v := *a.CurrentStatus
		out.CurrentStatus = &v
	}
	if a.AchievementPercentage != nil {
		v := *a.AchievementPercentage
		out.AchievementPercentage = &v
	}
	if a.DataSource != nil {
		v := *a.DataSource
		out.DataSource = &v
	}
	if a.Remarks != nil {
		v := *a.Remarks
		out.Remarks = &v
	}
	return out
}

// SubCategoryRecord is the persisted payload for one (district, sector,
// sub-category) key. The JSON shape is a wire contract consumed by analytics
// and chat; both keys are always present and round-trip losslessly.
type SubCategoryRecord struct {
	ActionPoints      []ActionPoint  `json:"action_points"`
	AdditionalDetails map[string]any `json:"additional_details"`
}

// NewSubCategoryRecord returns an empty record with non-nil fields so the
// serialized form always carries both keys.
func NewSubCategoryRecord() *SubCategoryRecord {
	return &SubCategoryRecord{
		ActionPoints:      []ActionPoint{},
		AdditionalDetails: map[string]any{},
	}
}

// Clone returns a deep copy of the record. AdditionalDetails values are
// copied shallowly; they are opaque extracted values and never mutated.
func (r *SubCategoryRecord) Clone() *SubCategoryRecord {
	out := NewSubCategoryRecord()
	for _, ap := range r.ActionPoints {
		out.ActionPoints = append(out.ActionPoints, ap.Clone())
	}
	for k, v := range r.AdditionalDetails {
		out.AdditionalDetails[k] = v
	}
	return out
}

// MarshalRecord serializes a record to the persisted JSON shape.
func MarshalRecord(r *SubCategoryRecord) ([]byte, error) {
	if r.ActionPoints == nil {
		r.ActionPoints = []ActionPoint{}
	}
	if r.AdditionalDetails == nil {
		r.AdditionalDetails = map[string]any{}
	}
	return json.Marshal(r)
}

// UnmarshalRecord parses the persisted JSON shape back into a record.
func UnmarshalRecord(data []byte) (*SubCategoryRecord, error) {
	rec := NewSubCategoryRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	if rec.ActionPoints == nil {
		rec.ActionPoints = []ActionPoint{}
	}
	if rec.AdditionalDetails == nil {
		rec.AdditionalDetails = map[string]any{}
	}
	return rec, nil
}

// StructuredExtraction is the unit produced by one extraction run:
// sector name -> sub-category name -> record.
type StructuredExtraction struct {
	District   string                                   `json:"district"`
	UploadDate string                                   `json:"upload_date"`
	Sectors    map[string]map[string]*SubCategoryRecord `json:"sectors"`
}

// NewStructuredExtraction returns an empty extraction for a district/date.
func NewStructuredExtraction(district, uploadDate string) *StructuredExtraction {
	return &StructuredExtraction{
		District:   district,
		UploadDate: uploadDate,
		Sectors:    map[string]map[string]*SubCategoryRecord{},
	}
}

// Record returns the record at (sector, subCategory), creating it if absent.
func (e *StructuredExtraction) Record(sector, subCategory string) *SubCategoryRecord {
	subs, ok := e.Sectors[sector]
	if !ok {
		subs = map[string]*SubCategoryRecord{}
		e.Sectors[sector] = subs
	}
	rec, ok := subs[subCategory]
	if !ok {
		rec = NewSubCategoryRecord()
		subs[subCategory] = rec
	}
	return rec
}
