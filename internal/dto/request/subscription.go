package request

type ChangePlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=basic pro unlimited"`
}

type SetDutyRequest struct {
	OnDuty *bool `json:"on_duty" validate:"required"`
}
