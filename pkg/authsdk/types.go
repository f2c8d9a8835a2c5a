package authsdk

// ============================================================================
// Request Types
// ============================================================================

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" example:"Ada Lovelace"`
	Email    string `json:"email" example:"ada@x.com"`
	Password string `json:"password" example:"secret1"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"ada@x.com"`
	Password string `json:"password" example:"secret1"`
}

// ============================================================================
// Response Types
// ============================================================================

// User is the public view of an identity. It never carries credential
// material.
type User struct {
	ID    string `json:"id" example:"01JA8Z6Q2X3V4B5N6M7K8J9H0G"`
	Name  string `json:"name" example:"Ada Lovelace"`
	Email string `json:"email" example:"ada@x.com"`
}

// MessageResponse acknowledges an operation that returns no data, such as
// registration and logout.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Registration successful! Please login."`
}

// LoginResponse is returned by POST /api/auth/login. The session token
// itself travels only in the HttpOnly cookie.
type LoginResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Login successful"`
	User    User   `json:"user"`
}

// MeResponse is returned by GET /api/auth/me.
type MeResponse struct {
	Success bool `json:"success" example:"true"`
	User    User `json:"user"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"Invalid email or password"`
}

// BannerResponse is returned by GET /.
type BannerResponse struct {
	Message string `json:"message" example:"CertTrack API running"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Store is the credential store status as last seen by the store monitor
	Store string `json:"store"`

	// Signer indicates the session signing capability status
	Signer string `json:"signer"`
}
