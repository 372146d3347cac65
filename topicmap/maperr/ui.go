package maperr

import "fmt"

var defaultMessages = map[Category]string{
	CategoryInvariant:   "The topicmap got out of sync - please reload",
	CategoryLookup:      "The requested item is not on this topicmap",
	CategoryPersistence: "Changes could not be saved",
	CategoryRender:      "The view could not be updated",
	CategoryDirective:   "An update from the server could not be applied",
	CategoryWebSocket:   "Connection error - attempting to reconnect...",
	CategoryInternal:    "An internal error occurred - please try again",
}

// ToUIMessage converts the error to a user-friendly message
func (e *MapError) ToUIMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	if msg, ok := defaultMessages[e.Category]; ok {
		return msg
	}
	return "An error occurred"
}

// ToMeta formats the error for the client error message
func (e *MapError) ToMeta() map[string]string {
	meta := map[string]string{
		"error":       e.Error(),
		"category":    string(e.Category),
		"description": e.ToUIMessage(),
		"timestamp":   e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	if e.Subcategory != "" {
		meta["subcategory"] = e.Subcategory
	}
	if len(e.Context) > 0 {
		meta["context"] = fmt.Sprintf("%v", e.Context)
	}
	return meta
}

// ToLogFields converts the error to structured log fields for logger.Errorw
func (e *MapError) ToLogFields() []interface{} {
	fields := []interface{}{
		"error_category", e.Category,
		"error_message", e.Error(),
	}
	if e.Subcategory != "" {
		fields = append(fields, "error_subcategory", e.Subcategory)
	}
	for k, v := range e.Context {
		fields = append(fields, k, v)
	}
	return fields
}

// IsCategory checks if the error matches a specific category
func (e *MapError) IsCategory(cat Category) bool {
	return e.Category == cat
}
