package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Default fallback templates. Deliberately generic: they exist so a model
// outage degrades campaigns to plain-but-sendable content.
const (
	defaultSubjectTemplate = `Quick question from {{ company_name }}`
	defaultBodyTemplate    = `Hi there,

I'm {{ sender_name }} from {{ company_name }}. {{ value_prop }}

{{ call_to_action }}

Best,
{{ sender_name }}
{{ company_name }}`
)

// FallbackGenerator renders liquid templates with brand context. It has no
// external dependencies at render time, so it is the generator of last
// resort in the dispatch loop.
type FallbackGenerator struct {
	engine *liquid.Engine

	mu              sync.RWMutex
	subjectTemplate string
	bodyTemplate    string
}

// NewFallbackGenerator returns a generator on the default templates.
func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{
		engine:          liquid.NewEngine(),
		subjectTemplate: defaultSubjectTemplate,
		bodyTemplate:    defaultBodyTemplate,
	}
}

// SetTemplates swaps in campaign-specific liquid templates.
func (f *FallbackGenerator) SetTemplates(subject, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjectTemplate = subject
	f.bodyTemplate = body
}

// Generate renders the templates for one lead. The lead reference is bound
// so custom templates can include it for list-management footers.
func (f *FallbackGenerator) Generate(_ context.Context, leadID string, brand domain.BrandContext) (domain.Message, error) {
	f.mu.RLock()
	subjectTpl, bodyTpl := f.subjectTemplate, f.bodyTemplate
	f.mu.RUnlock()

	bindings := map[string]any{
		"lead_ref":       leadID,
		"company_name":   brand.CompanyName,
		"product_name":   brand.ProductName,
		"sender_name":    brand.SenderName,
		"value_prop":     brand.ValueProp,
		"call_to_action": brand.CallToAction,
	}

	subject, err := f.engine.ParseAndRenderString(subjectTpl, bindings)
	if err != nil {
		return domain.Message{}, fmt.Errorf("fallback subject render failed: %w", err)
	}
	body, err := f.engine.ParseAndRenderString(bodyTpl, bindings)
	if err != nil {
		return domain.Message{}, fmt.Errorf("fallback body render failed: %w", err)
	}

	return domain.Message{Subject: subject, Body: body}, nil
}
