package dto

type IngestRequest struct {
	Path string `json:"path" validate:"required"`
}

type IngestResponse struct {
	Source   string `json:"source"`
	Products int    `json:"products"`
	Queued   bool   `json:"queued"`
}

// IndexProductMessage is the watermill payload for one catalog line
type IndexProductMessage struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Line     int    `json:"line"`
	Source   string `json:"source"`
	Raw      string `json:"raw"`
}
