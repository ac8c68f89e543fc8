// AngelaMos | 2026
// dto.go

package auth

type LoginRequest struct {
	Email      string `json:"email"       validate:"required,max=255"`
	Password   string `json:"password"    validate:"required,max=128"`
	UserType   string `json:"user_type"   validate:"required,oneof=worker household admin"`
	RememberMe bool   `json:"remember_me"`
}

type WorkerRegisterRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Phone    string `json:"phone"     validate:"required,min=6,max=20"`
	Email    string `json:"email"     validate:"omitempty,email,max=255"`
	Password string `json:"password"  validate:"required,min=8,max=128"`
}

type HouseholdRegisterRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Phone    string `json:"phone"    validate:"required,min=6,max=20"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type VerifyOTPRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Code       string `json:"code"       validate:"required,len=6,numeric"`
	UserType   string `json:"user_type"  validate:"required,oneof=worker household"`
	Purpose    string `json:"purpose"    validate:"omitempty,oneof=registration phone_verification"`
}

type ResendOTPRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	UserType   string `json:"user_type"  validate:"required,oneof=worker household"`
	Purpose    string `json:"purpose"    validate:"omitempty,oneof=registration phone_verification"`
}

type ForgotPasswordRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	UserType   string `json:"user_type"  validate:"required,oneof=worker household admin"`
}

type VerifyResetCodeRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Code       string `json:"code"       validate:"required,len=6,numeric"`
	UserType   string `json:"user_type"  validate:"required,oneof=worker household admin"`
}

type ResetPasswordRequest struct {
	Identifier  string `json:"identifier"   validate:"required,max=255"`
	Code        string `json:"code"         validate:"required,len=6,numeric"`
	UserType    string `json:"user_type"    validate:"required,oneof=worker household admin"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type VerifyEmailQuery struct {
	Token    string `validate:"required,hexadecimal,len=64"`
	Email    string `validate:"required,email,max=255"`
	UserType string `validate:"required,oneof=worker household admin"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

type UserResponse struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Name               string `json:"name"`
	UserType           string `json:"user_type"`
	Status             string `json:"status,omitempty"`
	VerificationStatus string `json:"verification_status,omitempty"`
}

type SessionResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
}

type RegisterResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
	OTPSent bool         `json:"otp_sent"`
}

type CodeRequestResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

type VerifiedResponse struct {
	Success  bool `json:"success"`
	Verified bool `json:"verified"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type MeResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
}

type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type CSRFResponse struct {
	CSRFToken string `json:"csrf_token"`
}

func ToUserResponse(i *IdentityInfo) UserResponse {
	return UserResponse{
		ID:                 i.ID,
		Email:              i.Email,
		Phone:              i.Phone,
		Name:               i.Name,
		UserType:           i.Role.String(),
		Status:             string(i.Status),
		VerificationStatus: string(i.VerificationStatus),
	}
}
