package rbac

// Actions that combine with an entity name into a CRUD flag, e.g. "createAgent".
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Workflow flags. The receipt flag keeps the backend's spelling.
const (
	Approve1         = "approve1"
	Approve2         = "approve2"
	CloseBatch       = "closeBatch"
	Pay              = "pay"
	ViewReceiptImage = "viewRecieptImage"
	ViewDashboard    = "viewDashboard"
)

// Entities carrying CRUD flags.
var Entities = []string{
	"Agent",
	"Distributor",
	"Region",
	"SubRegion",
	"Product",
	"Commission",
	"Group",
	"User",
	"RegionManager",
	"SubRegionManager",
}

// Actions in matrix column order.
var Actions = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// Flag builds the CRUD flag for action on entity.
func Flag(action, entity string) string {
	return action + entity
}

// WorkflowFlag documents a non-CRUD capability.
type WorkflowFlag struct {
	Name  string
	Label string
}

// Workflow lists the sales pipeline and dashboard flags in display order.
var Workflow = []WorkflowFlag{
	{Name: Approve1, Label: "Confirm or reject sales"},
	{Name: Approve2, Label: "Approve confirmed sales"},
	{Name: CloseBatch, Label: "Close the open batch"},
	{Name: Pay, Label: "Mark closed batches as paid"},
	{Name: ViewReceiptImage, Label: "View receipt images"},
	{Name: ViewDashboard, Label: "View dashboard"},
}

// MatrixRow is one entity with its four CRUD flags.
type MatrixRow struct {
	Entity string
	Flags  []string
}

// Matrix returns the entity by action grid of CRUD flags.
func Matrix() []MatrixRow {
	rows := make([]MatrixRow, 0, len(Entities))
	for _, entity := range Entities {
		flags := make([]string, 0, len(Actions))
		for _, action := range Actions {
			flags = append(flags, Flag(action, entity))
		}
		rows = append(rows, MatrixRow{Entity: entity, Flags: flags})
	}
	return rows
}

// Catalog returns every known flag.
func Catalog() []string {
	out := make([]string, 0, len(Entities)*len(Actions)+len(Workflow))
	for _, row := range Matrix() {
		out = append(out, row.Flags...)
	}
	for _, wf := range Workflow {
		out = append(out, wf.Name)
	}
	return out
}

// SalesFlags grant access to the sales screens.
var SalesFlags = []string{Approve1, Approve2, CloseBatch, Pay}
