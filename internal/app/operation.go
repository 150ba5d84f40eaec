package app

// Maintenance operation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MaintenanceOperation tracks a CLI operation that may mutate the share table.
// Operations are created in memory with ID=0. Only mutating commands persist
// them, which gives them an auto-increment ID from the database.
type MaintenanceOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
}

// NewMaintenanceOperation creates a new in-memory operation that will be
// recorded as successful unless Fail is called.
func NewMaintenanceOperation(operation, parameters string) *MaintenanceOperation {
	return &MaintenanceOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *MaintenanceOperation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as failed.
func (op *MaintenanceOperation) Fail() {
	op.Status = StatusError
}
