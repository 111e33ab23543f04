package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// IntakeRequest is the POST /api/documents payload. DocumentID is optional;
// supplying one makes the create idempotent on that key.
type IntakeRequest struct {
	DocumentID  string   `json:"documentId,omitempty"`
	Bucket      string   `json:"bucket"`
	Key         string   `json:"key"`
	ContentType string   `json:"contentType"`
	SizeBytes   int64    `json:"sizeBytes"`
	PageCount   int      `json:"pageCount,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// Validate applies structural checks before the request reaches the intake
// router; the router owns the size and content-type policy.
func (r IntakeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Bucket, validation.Required),
		validation.Field(&r.Key, validation.Required),
		validation.Field(&r.ContentType, validation.Required),
		validation.Field(&r.SizeBytes, validation.Required, validation.Min(1)),
		validation.Field(&r.PageCount, validation.Min(0)),
	)
}

// DispatchRequest is the optional POST /api/documents/{id}/dispatch payload
// carrying cross-check fields. An empty body is a bare dispatch.
type DispatchRequest struct {
	Bucket string `json:"bucket,omitempty"`
	Key    string `json:"key,omitempty"`
	Tier   string `json:"tier,omitempty"`
}

// Validate rejects unknown tier spellings; empty means "no cross-check".
func (r DispatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tier, validation.In("", "fast", "heavy")),
	)
}

// EditRequest is the PATCH /api/documents/{id} payload. Every field is a
// pointer so "absent" and "set to empty" stay distinguishable; at least one
// field must be present.
type EditRequest struct {
	RefinedText   *string   `json:"refinedText,omitempty"`
	FormattedText *string   `json:"formattedText,omitempty"`
	Title         *string   `json:"title,omitempty"`
	Author        *string   `json:"author,omitempty"`
	Publication   *string   `json:"publication,omitempty"`
	Year          *int      `json:"year,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
}

// IsZero reports whether the request touches no field.
func (r EditRequest) IsZero() bool {
	return r.RefinedText == nil && r.FormattedText == nil && r.Title == nil &&
		r.Author == nil && r.Publication == nil && r.Year == nil &&
		r.Description == nil && r.Tags == nil
}

// Validate checks field-level bounds. The non-empty-subset rule is enforced
// by the editor so direct (non-HTTP) callers hit the same wall.
func (r EditRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Year, validation.Min(0), validation.Max(9999)),
	)
}
