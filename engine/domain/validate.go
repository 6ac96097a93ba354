package domain

import (
	"fmt"
	"strings"
)

// SupportedStates enumerates the states the curated corpus covers.
var SupportedStates = map[string]bool{
	"andhra pradesh": true,
	"telangana":      true,
}

// ValidCategories is the set of recognised reservation categories.
var ValidCategories = map[string]bool{
	"general": true,
	"ews":     true,
	"obc/bc":  true,
	"sc":      true,
	"st":      true,
}

// ValidLanguages is the set of supported answer languages.
var ValidLanguages = map[string]bool{
	"en": true,
	"te": true,
	"hi": true,
}

const (
	MinAge = 0
	MaxAge = 120
)

// ValidateProfile checks a user profile before it reaches retrieval.
func ValidateProfile(p Profile) error {
	if !SupportedStates[strings.ToLower(strings.TrimSpace(p.State))] {
		return NewValidationError("state", p.State, ErrUnsupportedState)
	}
	if p.Age < MinAge || p.Age > MaxAge {
		return NewValidationError("age", fmt.Sprintf("%d", p.Age), ErrAgeOutOfRange)
	}
	if p.AnnualIncome < 0 {
		return NewValidationError("annual_income", fmt.Sprintf("%d", p.AnnualIncome), ErrNegativeIncome)
	}
	if !ValidCategories[strings.ToLower(strings.TrimSpace(p.Category))] {
		return NewValidationError("category", p.Category, ErrUnknownCategory)
	}
	if !ValidLanguages[strings.ToLower(strings.TrimSpace(p.Language))] {
		return NewValidationError("language", p.Language, ErrUnsupportedLanguage)
	}
	return nil
}

// ValidateChunk checks a chunk row before it is persisted or indexed.
func ValidateChunk(c Chunk) error {
	if c.DocID == "" {
		return fmt.Errorf("validate: doc_id is empty")
	}
	if c.FileName == "" {
		return fmt.Errorf("validate: file_name is empty")
	}
	if c.PageNo < 1 {
		return fmt.Errorf("validate: page_no %d is not 1-based", c.PageNo)
	}
	if c.ChunkNo < 1 {
		return fmt.Errorf("validate: chunk_no %d is not 1-based", c.ChunkNo)
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("validate: text is empty")
	}
	return nil
}
