package dtos

import (
	"time"

	"gohan/vcf/models/indexes"
)

type VariantsResponseDTO struct {
	Status  int                        `json:"status"`
	Message string                     `json:"message"`
	Data    []VariantResponseDataModel `json:"data"`
}
type VariantResponseDataModel struct {
	VariantId string            `json:"variantId,omitempty"`
	SampleId  string            `json:"sampleId,omitempty"`
	Count     int               `json:"count"`
	Results   []indexes.Variant `json:"results,omitempty"`
}

type SampleRemovalResponseDTO struct {
	SampleId        string `json:"sampleId"`
	UpdatedVariants int    `json:"updatedVariants"`
	DeletedVariants int    `json:"deletedVariants"`
}

// -- errors
type GeneralErrorResponseDto struct {
	Code      int            `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Errors    []GeneralError `json:"errors"`
}
type GeneralError struct {
	Message string `json:"message"`
}
