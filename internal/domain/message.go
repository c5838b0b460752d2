package domain

// Message is the rendered outreach content for one lead: what the content
// generator returns and the transport sends. The engine never inspects the
// body; it only carries it from generator to sender.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// IsEmpty reports whether the message carries no usable content.
func (m Message) IsEmpty() bool {
	return m.Subject == "" && m.Body == ""
}

// BrandContext is the campaign-level voice the content generator writes in.
type BrandContext struct {
	CompanyName  string `json:"company_name"`
	ProductName  string `json:"product_name"`
	SenderName   string `json:"sender_name"`
	ValueProp    string `json:"value_prop"`
	CallToAction string `json:"call_to_action"`
}
