package crm

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/pkg/notion"
)

// Notion rejects rich text content longer than this.
const notionTextLimit = 2000

// NotionSink upserts one page per lead into a Notion database, keyed on the
// Lead ID property.
type NotionSink struct {
	client notion.Client
	dbID   string
}

// NewNotionSink creates a sink writing to database dbID.
func NewNotionSink(c notion.Client, dbID string) *NotionSink {
	return &NotionSink{client: c, dbID: dbID}
}

func (s *NotionSink) Name() string { return "notion" }

// Push writes each lead in turn. A failed lead is recorded and skipped;
// cancellation stops the push.
func (s *NotionSink) Push(ctx context.Context, leads []model.Lead) (*PushResult, error) {
	res := &PushResult{Sink: s.Name(), Total: len(leads)}

	for i := range leads {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "notion sink: push")
		}
		lead := &leads[i]

		created, err := s.upsert(ctx, lead)
		if err != nil {
			zap.L().Warn("notion sink: lead failed", zap.String("lead_id", lead.ID), zap.Error(err))
			res.fail(fmt.Sprintf("%s (%s): %v", lead.Name, lead.ID, err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

func (s *NotionSink) upsert(ctx context.Context, lead *model.Lead) (bool, error) {
	existing, err := notion.FindPageByLeadID(ctx, s.client, s.dbID, lead.ID)
	if err != nil {
		return false, err
	}

	props := pageProperties(lead)
	if existing != nil {
		_, err = s.client.UpdatePage(ctx, string(existing.ID), &notionapi.PageUpdateRequest{Properties: props})
		return false, err
	}

	_, err = s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(s.dbID),
		},
		Properties: props,
	})
	return true, err
}

func pageProperties(lead *model.Lead) notionapi.Properties {
	total, rule, ai, reasoning := score(lead)

	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(lead.Name),
		},
		notion.LeadIDProperty: textProperty(lead.ID),
		"Score":               notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: float64(total)},
		"Rule Score":          notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: float64(rule)},
		"AI Score":            notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: float64(ai)},
	}
	if label := lead.Tier().Label(); label != "" {
		props["Intent"] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: label},
		}
	}

	optional := map[string]string{
		"Role":      lead.Role,
		"Company":   lead.Company,
		"Industry":  lead.Industry,
		"Location":  lead.Location,
		"Reasoning": reasoning,
	}
	for k, v := range optional {
		if v != "" {
			props[k] = textProperty(v)
		}
	}
	return props
}

func textProperty(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: richText(s),
	}
}

func richText(s string) []notionapi.RichText {
	if r := []rune(s); len(r) > notionTextLimit {
		s = string(r[:notionTextLimit])
	}
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}
