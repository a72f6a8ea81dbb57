package bookings

type ListFilter struct {
	Status string
	Date   string
}

type AdminStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=verified rejected"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
