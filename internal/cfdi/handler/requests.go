package handler

import (
	"errors"

	"conectasat/internal/history/models"
	"conectasat/internal/verification"
)

// CFDIRequest is the verification request body. Field names follow the SAT
// vocabulary the API has always exposed.
type CFDIRequest struct {
	UUID        string `json:"uuid"`
	EmisorRFC   string `json:"emisor_rfc"`
	ReceptorRFC string `json:"receptor_rfc"`
	Total       string `json:"total"`
}

func (r CFDIRequest) validate() error {
	switch {
	case r.UUID == "":
		return errors.New("uuid is required")
	case r.EmisorRFC == "":
		return errors.New("emisor_rfc is required")
	case r.ReceptorRFC == "":
		return errors.New("receptor_rfc is required")
	case r.Total == "":
		return errors.New("total is required")
	}
	return nil
}

func (r CFDIRequest) toVerification() verification.Request {
	return verification.Request{
		UUID:        r.UUID,
		EmisorRFC:   r.EmisorRFC,
		ReceptorRFC: r.ReceptorRFC,
		Total:       r.Total,
	}
}

// BatchCFDIRequest wraps the items of a batch verification.
type BatchCFDIRequest struct {
	CFDIs []CFDIRequest `json:"cfdis"`
}

func (r BatchCFDIRequest) validate() error {
	if len(r.CFDIs) == 0 {
		return errors.New("cfdis must contain at least one item")
	}
	for _, item := range r.CFDIs {
		if err := item.validate(); err != nil {
			return err
		}
	}
	return nil
}

// HistoryResponse pages the caller's verification history alongside the
// total count, so clients can paginate without a second request.
type HistoryResponse struct {
	History []*models.Entry `json:"history"`
	Total   int64           `json:"total"`
}

// BatchCFDIResponse mirrors the input order item by item.
type BatchCFDIResponse struct {
	Results []BatchItemResponse `json:"results"`
}

// BatchItemResponse reports one item's outcome. Error is null on success.
type BatchItemResponse struct {
	Request  CFDIRequest         `json:"request"`
	Response verification.Result `json:"response"`
	Error    *string             `json:"error"`
}
