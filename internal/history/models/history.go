package models

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded verification attempt. The request fields are always
// present; the result fields mirror whatever SAT reported and may be empty.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	CFDIUUID    string    `json:"uuid"`
	EmisorRFC   string    `json:"emisor_rfc"`
	ReceptorRFC string    `json:"receptor_rfc"`
	Total       string    `json:"total"`

	Estado             string `json:"estado"`
	EsCancelable       string `json:"es_cancelable"`
	EstatusCancelacion string `json:"estatus_cancelacion"`
	CodigoEstatus      string `json:"codigo_estatus"`
	ValidacionEFOS     string `json:"validacion_efos"`

	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
