package model

type Upload struct {
	ID             string  `json:"id"`
	ObjectKey      string  `json:"object_key"`
	ImageURL       string  `json:"image_url"`
	PredictedLabel string  `json:"predicted_label"`
	Confidence     float64 `json:"confidence"`
	UserLabel      string  `json:"user_label"`
	IsVerified     bool    `json:"is_verified"`
	Ctime          int64   `json:"ctime"`
	Mtime          int64   `json:"mtime"`
}
