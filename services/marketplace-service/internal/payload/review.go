package payload

type CriteriaRequest struct {
	Quality         *int `json:"quality"         validate:"omitempty,min=1,max=5"`
	Communication   *int `json:"communication"   validate:"omitempty,min=1,max=5"`
	Timeliness      *int `json:"timeliness"      validate:"omitempty,min=1,max=5"`
	Professionalism *int `json:"professionalism" validate:"omitempty,min=1,max=5"`
}

type CreateReviewRequest struct {
	TaskID   string           `json:"taskId"   validate:"required,mongodb"`
	Rating   int              `json:"rating"   validate:"required,min=1,max=5"`
	Comment  string           `json:"comment"  validate:"max=1000"`
	Criteria *CriteriaRequest `json:"criteria"`
}

type FlagReviewRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
