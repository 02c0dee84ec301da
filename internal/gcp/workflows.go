package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/mediaflow/internal/lazy"
	"github.com/Lllllllleong/mediaflow/internal/models"
)

// WorkflowPublisher hands each processing request to a Cloud Workflows
// execution, which plays the role of the message channel.
type WorkflowPublisher struct {
	client *lazy.Value[*executions.Client]
	parent string
}

// NewWorkflowPublisher targets projects/<project>/locations/<location>/workflows/<id>.
func NewWorkflowPublisher(projectID, location, workflowID string) (*WorkflowPublisher, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("project, workflow location and WORKFLOW_ID must be set")
	}
	client := lazy.New(func(context.Context) (*executions.Client, error) {
		c, err := executions.NewClient(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
		return c, nil
	}, func(c *executions.Client) { _ = c.Close() })

	return &WorkflowPublisher{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

func (p *WorkflowPublisher) Close() error {
	p.client.Close()
	return nil
}

// workflowArgument is the execution argument; the workflow reads subject and message.
type workflowArgument struct {
	Subject string                `json:"subject"`
	Message models.ProcessRequest `json:"message"`
}

func (p *WorkflowPublisher) Publish(ctx context.Context, subject string, msg models.ProcessRequest) error {
	client, err := p.client.Get(ctx)
	if err != nil {
		return err
	}
	payloadBytes, err := json.Marshal(workflowArgument{Subject: subject, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: p.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	if _, err := client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}
