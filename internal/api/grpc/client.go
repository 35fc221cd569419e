package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"event-validation-service/internal/models"
)

// Client calls the EventValidator service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Validate sends ev and decodes the returned report.
func (c *Client) Validate(ctx context.Context, ev *models.Event, opts ...grpc.CallOption) (*models.ValidationReport, error) {
	in, err := toStruct(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateMethod, in, out, opts...); err != nil {
		return nil, err
	}

	data, err := out.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var report models.ValidationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
