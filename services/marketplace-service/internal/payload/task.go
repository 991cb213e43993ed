package payload

import "time"

type BudgetRequest struct {
	Amount   float64 `json:"amount"   validate:"gt=0"`
	Currency string  `json:"currency" validate:"omitempty,len=3,uppercase"`
	Type     string  `json:"type"     validate:"omitempty,oneof=fixed hourly"`
}

type CreateTaskRequest struct {
	Title          string        `json:"title"          validate:"required,max=120"`
	Description    string        `json:"description"    validate:"required,max=5000"`
	Category       string        `json:"category"       validate:"required"`
	SkillsRequired []string      `json:"skillsRequired" validate:"max=20,dive,required"`
	Budget         BudgetRequest `json:"budget"`
	Deadline       time.Time     `json:"deadline"       validate:"required"`
}

type BidRequest struct {
	Amount       float64 `json:"amount"       validate:"gt=0"`
	Message      string  `json:"message"      validate:"max=1000"`
	DeliveryDays int     `json:"deliveryTime" validate:"gte=1,lte=365"`
}

type SubmitWorkRequest struct {
	Message     string   `json:"message"     validate:"required,max=5000"`
	Attachments []string `json:"attachments" validate:"max=10,dive,url"`
}

type CompleteTaskRequest struct {
	Rating  int    `json:"rating"  validate:"omitempty,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

type DisputeRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}
