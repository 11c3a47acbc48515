package opensubtitles

type loginRequest struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type loginResponse struct {
	Token  string `json:"token"`
	Status int    `json:"status"`
}

type searchResponse struct {
	TotalCount int             `json:"total_count"`
	Data       []subtitleEntry `json:"data"`
}

type subtitleEntry struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Attributes subtitleAttributes `json:"attributes"`
}

type subtitleAttributes struct {
	Language      string         `json:"language"`
	Release       string         `json:"release"`
	DownloadCount int            `json:"download_count"`
	Files         []subtitleFile `json:"files"`
}

type subtitleFile struct {
	FileID   int64  `json:"file_id"`
	FileName string `json:"file_name"`
}

type downloadRequest struct {
	FileID int64 `json:"file_id"`
}

type downloadResponse struct {
	Link      string `json:"link"`
	FileName  string `json:"file_name"`
	Remaining int    `json:"remaining"`
}
