package movement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/infra/rpc"
)

const eventFields = `account_address
    creation_number
    sequence_number
    transaction_version
    type
    indexed_type
    data`

const eventsByTypeQuery = `query EventsByType($type: String!, $limit: Int) {
  events(
    where: {indexed_type: {_eq: $type}}
    order_by: {transaction_version: desc}
    limit: $limit
  ) {
    ` + eventFields + `
  }
}`

const eventsByAccountAndTypeQuery = `query EventsByAccountAndType($type: String!, $account: String!, $limit: Int) {
  events(
    where: {indexed_type: {_eq: $type}, account_address: {_eq: $account}}
    order_by: {sequence_number: desc}
    limit: $limit
  ) {
    ` + eventFields + `
  }
}`

type indexerEvent struct {
	AccountAddress     string          `json:"account_address"`
	CreationNumber     json.Number     `json:"creation_number"`
	SequenceNumber     json.Number     `json:"sequence_number"`
	TransactionVersion json.Number     `json:"transaction_version"`
	Type               string          `json:"type"`
	IndexedType        string          `json:"indexed_type"`
	Data               json.RawMessage `json:"data"`
}

type nodeEvent struct {
	Version string `json:"version"`
	GUID    struct {
		CreationNumber string `json:"creation_number"`
		AccountAddress string `json:"account_address"`
	} `json:"guid"`
	SequenceNumber string          `json:"sequence_number"`
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
}

// GetEventsByEventType returns recent events of eventType.
//
// A module event type (address::module::Struct) is served by the indexer,
// filtered by accountAddress when one is given. A legacy handle of the form
// address::module::Resource<...>/field is served by the fullnode events
// endpoint of accountAddress. Results are not sorted.
func (c *Client) GetEventsByEventType(
	ctx context.Context,
	accountAddress, eventType string,
	limit int,
) ([]domain.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if handle, field, ok := splitEventHandle(eventType); ok {
		return c.getEventsByHandle(ctx, accountAddress, handle, field, limit)
	}
	return c.getIndexedEvents(ctx, accountAddress, eventType, limit)
}

func (c *Client) getIndexedEvents(ctx context.Context, accountAddress, eventType string, limit int) ([]domain.Event, error) {
	vars := map[string]any{"type": eventType, "limit": limit}
	query, name := eventsByTypeQuery, "EventsByType"
	if accountAddress != "" {
		full, ok := domain.NormalizeAddress(accountAddress)
		if !ok {
			return nil, fmt.Errorf("invalid address %q", accountAddress)
		}
		vars["account"] = full
		query, name = eventsByAccountAndTypeQuery, "EventsByAccountAndType"
	}

	var resp struct {
		Events []indexerEvent `json:"events"`
	}
	if err := c.exec.Call(ctx, rpc.PoolIndexer, rpc.NewGraphQLOperation(name, query, vars), &resp); err != nil {
		return nil, fmt.Errorf("failed to query events of type %s: %w", eventType, err)
	}

	events := make([]domain.Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		data, err := decodeEventData(e.Data)
		if err != nil {
			c.logger.Warn("Skipping event with undecodable data",
				"type", e.Type, "sequence_number", e.SequenceNumber.String(), "error", err)
			continue
		}
		events = append(events, domain.Event{
			Type:           e.Type,
			AccountAddress: e.AccountAddress,
			SequenceNumber: e.SequenceNumber.String(),
			Version:        e.TransactionVersion.String(),
			CreationNumber: e.CreationNumber.String(),
			Data:           data,
		})
	}
	return events, nil
}

func (c *Client) getEventsByHandle(
	ctx context.Context,
	accountAddress, handle, field string,
	limit int,
) ([]domain.Event, error) {
	if !domain.IsValidAddress(accountAddress) {
		return nil, fmt.Errorf("event handle %s/%s needs a valid account address, got %q", handle, field, accountAddress)
	}

	path := fmt.Sprintf("accounts/%s/events/%s/%s", accountAddress, url.PathEscape(handle), url.PathEscape(field))
	op := rpc.NewRESTQueryOperation(path, map[string]string{"limit": strconv.Itoa(limit)})

	var raw []nodeEvent
	if err := c.exec.Call(ctx, rpc.PoolNode, op, &raw); err != nil {
		return nil, fmt.Errorf("failed to get events %s/%s of %s: %w", handle, field, accountAddress, err)
	}

	events := make([]domain.Event, 0, len(raw))
	for _, e := range raw {
		data, err := decodeEventData(e.Data)
		if err != nil {
			c.logger.Warn("Skipping event with undecodable data",
				"type", e.Type, "sequence_number", e.SequenceNumber, "error", err)
			continue
		}
		events = append(events, domain.Event{
			Type:           e.Type,
			AccountAddress: e.GUID.AccountAddress,
			SequenceNumber: e.SequenceNumber,
			Version:        e.Version,
			CreationNumber: e.GUID.CreationNumber,
			Data:           data,
		})
	}
	return events, nil
}

// splitEventHandle splits "struct_tag/field" at the last slash.
func splitEventHandle(eventType string) (handle, field string, ok bool) {
	i := strings.LastIndexByte(eventType, '/')
	if i <= 0 || i == len(eventType)-1 {
		return "", "", false
	}
	return eventType[:i], eventType[i+1:], true
}

// decodeEventData decodes event payloads, keeping numbers as json.Number.
// The indexer sometimes hands back the payload as a JSON encoded string.
func decodeEventData(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	var data any
	if err := decodeNumbers(raw, &data); err != nil {
		return nil, err
	}
	if s, ok := data.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "{") {
		var inner any
		if err := decodeNumbers([]byte(s), &inner); err == nil {
			return inner, nil
		}
	}
	return data, nil
}
