package dto

// LoginRequest starts the OTP flow.
type LoginRequest struct {
	Phone       string `json:"phone"`
	Environment string `json:"environment"`
}

// VerifyOTPRequest completes the OTP flow.
type VerifyOTPRequest struct {
	Phone       string `json:"phone"`
	OTP         string `json:"otp"`
	Environment string `json:"environment"`
}
