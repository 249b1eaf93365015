package model

type SampleFeature struct {
	UploadID    string    `json:"upload_id"`
	Fingerprint string    `json:"fingerprint"`
	Descriptor  []float32 `json:"descriptor"`
	Ctime       int64     `json:"ctime"`
}
