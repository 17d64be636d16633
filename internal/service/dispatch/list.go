package dispatch

import (
	"context"
	"regexp"
	"strings"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/log"
)

var listPrefilter = regexp.MustCompile(`(?i)\b(list|add .{1,80} to (my|the)|put .{1,80} on (my|the))\b`)

const listPrompt = `You extract a list action from the user's message.

Rules:
- "action" is "create" when the user starts a new list, "add_item" when they add to one.
- "list_name" is the list's name ("groceries", "packing list").
- For add_item, "item_content" is the single item being added.
- For create, "initial_items" holds any items named up front, possibly empty.
- "list_type" is a free-form word like "shopping", "todo", "packing", or empty.
- "entity_name" is the person or place the list is for, or empty.

Respond with only a JSON object:
{"is_list_action": bool, "action": "create|add_item", "list_name": "...", "item_content": "", "initial_items": [], "list_type": "", "entity_name": "", "confidence": 0.0-1.0}`

type listResult struct {
	IsListAction bool     `json:"is_list_action"`
	Action       string   `json:"action"`
	ListName     string   `json:"list_name"`
	ItemContent  string   `json:"item_content"`
	InitialItems []string `json:"initial_items"`
	ListType     string   `json:"list_type"`
	EntityName   string   `json:"entity_name"`
	Confidence   float64  `json:"confidence"`
}

func matchList(msg core.StoredMessage) bool {
	return listPrefilter.MatchString(msg.Content)
}

func (d *Dispatcher) handleList(ctx context.Context, msg core.StoredMessage) (*core.DispatchResult, error) {
	logger := log.FromCtx(ctx)

	var res listResult
	if !d.classify(ctx, listPrompt, msg.Content, &res) {
		return nil, nil
	}
	name := strings.TrimSpace(res.ListName)
	if !res.IsListAction || name == "" || res.Confidence < confidenceThreshold {
		return nil, nil
	}

	entity := strings.TrimSpace(res.EntityName)
	if entity != "" {
		if resolved, found, err := d.resolver.Search(ctx, entity); err == nil && found {
			entity = resolved
		}
	}

	switch res.Action {
	case "create":
		list, err := d.lists.Create(ctx, core.List{
			Name:       name,
			ListType:   strings.TrimSpace(res.ListType),
			EntityName: entity,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range res.InitialItems {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if _, err := d.lists.AddItem(ctx, list.ID, item); err != nil {
				logger.Warn().Err(err).Str("item", item).Msg("seed item failed")
			}
		}
		logger.Info().Str("list", list.Name).Int("seeded", len(res.InitialItems)).Msg("list created")
		return &core.DispatchResult{Action: core.ActionListCreated, Title: list.Name}, nil

	case "add_item":
		item := strings.TrimSpace(res.ItemContent)
		if item == "" {
			return nil, nil
		}
		// Merge on miss: adding to a list that does not exist yet creates it.
		list, found, err := d.lists.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if !found {
			list, err = d.lists.Create(ctx, core.List{
				Name:       name,
				ListType:   strings.TrimSpace(res.ListType),
				EntityName: entity,
			})
			if err != nil {
				return nil, err
			}
		}
		if _, err := d.lists.AddItem(ctx, list.ID, item); err != nil {
			return nil, err
		}
		logger.Info().Str("list", list.Name).Str("item", item).Msg("list item added")
		return &core.DispatchResult{Action: core.ActionListItemAdded, Title: list.Name, Detail: item}, nil
	}

	return nil, nil
}
