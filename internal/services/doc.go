// Package services defines the error classification shared by every
// component: sentinel markers for the failure categories callers need to
// distinguish, plus a single wrapping helper that attaches component and
// operation context.
package services
