package model

import "encoding/json"

// AnalysisRequest is the body sent to the backend analysis endpoint.
// It is built fresh for every submission and never mutated after sending.
type AnalysisRequest struct {
	Text         string     `json:"text"`
	Level        UsageLevel `json:"aiLevel"`
	Tools        []string   `json:"tools"`        // Selected tools in selection order
	Instructions string     `json:"instructions"` // Free-form extra instructions
}

// DownloadableFile is a report file generated by the backend.
type DownloadableFile struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Data      []byte `json:"-"`
}

// UnmarshalJSON accepts "data" either as a JSON string or as any other JSON
// value, which is kept as its raw encoding.
func (f *DownloadableFile) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name      string          `json:"name"`
		Extension string          `json:"extension"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f.Name = raw.Name
	f.Extension = raw.Extension
	f.Data = nil

	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Data, &s); err == nil {
		f.Data = []byte(s)
		return nil
	}
	f.Data = append([]byte(nil), raw.Data...)
	return nil
}

// MarshalJSON writes Data back as a string.
func (f DownloadableFile) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name      string `json:"name"`
		Extension string `json:"extension"`
		Data      string `json:"data"`
	}{f.Name, f.Extension, string(f.Data)})
}

// AnalysisResult is the decoded backend response for one analysis run.
type AnalysisResult struct {
	// RevisedText is nil when the backend omitted revised_text.
	RevisedText *string            `json:"revised_text"`
	Transcript  string             `json:"transcript"`
	Files       []DownloadableFile `json:"additional_downloadable_files"`
}
