package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRenderDocument renders a bill or purchase order PDF.
	TaskTypeRenderDocument = "document:render"
	// TaskTypeNotifyVendor delivers a vendor notification.
	TaskTypeNotifyVendor = "vendor:notify"
	// TaskTypeLinkageRepair runs the PO-Bill linkage repair pass.
	TaskTypeLinkageRepair = "linkage:repair"
)

// RenderDocumentPayload names the document to render.
type RenderDocumentPayload struct {
	Entity string `json:"entity"`
	ID     int64  `json:"id"`
}

// NotifyVendorPayload describes a vendor notification.
type NotifyVendorPayload struct {
	VendorID int64  `json:"vendor_id"`
	Message  string `json:"message"`
	Entity   string `json:"entity"`
	EntityID int64  `json:"entity_id"`
}

// NewRenderDocumentTask constructs an Asynq task.
func NewRenderDocumentTask(payload RenderDocumentPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRenderDocument, data), nil
}

// NewNotifyVendorTask constructs an Asynq task.
func NewNotifyVendorTask(payload NotifyVendorPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyVendor, data), nil
}

// NewLinkageRepairTask constructs an Asynq task.
func NewLinkageRepairTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLinkageRepair, nil)
}
