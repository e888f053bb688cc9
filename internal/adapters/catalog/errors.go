package catalog

import "errors"

// Sentinel errors for the template catalog.
var (
	ErrTemplateNotFound  = errors.New("template not found")
	ErrDuplicateTemplate = errors.New("duplicate template id")
	ErrLoadCatalog       = errors.New("load catalog failed")
)
