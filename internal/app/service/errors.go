package service

import "errors"

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrToolNotFound         = errors.New("tool not found")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrProductToolNotFound  = errors.New("tool is not attached to product")
	ErrConfigEntryNotFound  = errors.New("config entry not found")
	ErrNoChangesMade        = errors.New("no changes made")
	ErrConfigNotArray       = errors.New("tool config is not a list")
	ErrInvalidEntryFields   = errors.New("invalid config entry fields")
	ErrInvalidStatus        = errors.New("invalid product status")
	ErrInvalidModelKind     = errors.New("invalid catalog model kind")
	ErrRelatedModelNotFound = errors.New("related catalog document not found")
	ErrCannotForkCustomized = errors.New("customized products cannot be customized again")
	ErrInvalidCustomization = errors.New("referenced product and customizing user are required")
	ErrInvalidToolSelection = errors.New("tool selection must be a tool id or an object with a tool id")
)
