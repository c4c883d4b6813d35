package service

import "context"

// Binding change actions.
const (
	ActionBindingsReconciled = "bindings.reconciled"
	ActionBindingsDeleted    = "bindings.deleted"
	ActionEntryAdded         = "entry.added"
	ActionEntryUpdated       = "entry.updated"
	ActionEntryDeleted       = "entry.deleted"
	ActionBindingDeleted     = "binding.deleted"
)

// BindingEvent describes a committed change to a product's tool bindings.
type BindingEvent struct {
	ProductID           uint   `json:"productId"`
	ReferencedProductID *uint  `json:"referencedProduct,omitempty"`
	CustomizedByUser    string `json:"customizedByUser,omitempty"`
	Action              string `json:"action"`
	ToolIDs             []uint `json:"toolIds,omitempty"`
	EntryID             string `json:"entryId,omitempty"`
}

// BindingObserver is notified after a binding change is committed.
type BindingObserver interface {
	OnBindingsChanged(ctx context.Context, event BindingEvent)
}

// Observers fans an event out to every observer in order.
type Observers []BindingObserver

func (o Observers) OnBindingsChanged(ctx context.Context, event BindingEvent) {
	for _, observer := range o {
		if observer != nil {
			observer.OnBindingsChanged(ctx, event)
		}
	}
}
