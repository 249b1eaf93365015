package model

type Feedback struct {
	ID             string `json:"id"`
	UploadID       string `json:"upload_id"`
	ImageURL       string `json:"image_url"`
	PredictedLabel string `json:"predicted_label"`
	CorrectedLabel string `json:"corrected_label"`
	IsHelpful      *bool  `json:"is_helpful"`
	Comment        string `json:"comment"`
	ModelUpdated   bool   `json:"model_updated"`
	Ctime          int64  `json:"ctime"`
}
