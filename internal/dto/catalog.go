package dto

import "time"

// ProductResponse represents a product as exposed via transport layers.
type ProductResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Quantity    int       `json:"quantity"`
	WarehouseID *int64    `json:"warehouse_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// WarehouseResponse represents a warehouse.
type WarehouseResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SchoolResponse represents a school. The token is included so operators can
// distribute the school's submission code.
type SchoolResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SupervisorResponse represents a supervisor.
type SupervisorResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignmentResponse represents a supervisor-school link.
type AssignmentResponse struct {
	ID             int64     `json:"id"`
	SupervisorID   int64     `json:"supervisor_id"`
	SupervisorName string    `json:"supervisor_name,omitempty"`
	SchoolID       int64     `json:"school_id"`
	SchoolName     string    `json:"school_name,omitempty"`
	Primary        bool      `json:"primary"`
	CreatedAt      time.Time `json:"created_at"`
}

// DashboardResponse aggregates the counts shown on the operator landing view.
type DashboardResponse struct {
	Products      int               `json:"products"`
	Warehouses    int               `json:"warehouses"`
	Supervisors   int               `json:"supervisors"`
	Schools       int               `json:"schools"`
	PendingOrders int               `json:"pending_orders"`
	LowStock      []ProductResponse `json:"low_stock"`
}
