package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// DateUnavailable - подпись для отсутствующей даты.
const DateUnavailable = "Data não disponível"

// Condominium - элемент коллекции condominios.
type Condominium struct {
	ID   int64  `json:"id"`
	Name string `json:"nome"`
}

// FlexString принимает и строку, и число: номер квартиры в API встречается в обоих видах.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())

	return nil
}

// Unit - квартира/помещение (коллекция unidades).
type Unit struct {
	ID            int64      `json:"id"`
	CondominiumID int64      `json:"condominio_id"`
	Type          string     `json:"tipo_de_unidade"`
	Number        FlexString `json:"numero_da_unidade"`
}

// Label - "Apto 101" и т.п.
func (u *Unit) Label() string {
	if u == nil {
		return ""
	}

	switch {
	case u.Type != "" && u.Number != "":
		return u.Type + " " + string(u.Number)
	case u.Number != "":
		return string(u.Number)
	default:
		return u.Type
	}
}

// MeterLink - связь счётчика с помещением (medidores_unidades).
type MeterLink struct {
	ID   int64 `json:"id"`
	Unit *Unit `json:"unidade_id"`
}

// Reading - элемент коллекции leituras_unidades с раскрытыми связями.
type Reading struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	Value         *int64     `json:"leitura"`
	PreviousValue *int64     `json:"leitura_anterior"`
	PhotoID       *string    `json:"foto_id"`
	CreatedAt     *time.Time `json:"date_created"`
	UpdatedAt     *time.Time `json:"date_updated"`
	Meter         *MeterLink `json:"medidor_unidade_id"`
}

// CondominiumID - кондоминиум через раскрытые связи; 0 если связи не раскрыты.
func (r Reading) CondominiumID() int64 {
	if r.Meter == nil || r.Meter.Unit == nil {
		return 0
	}

	return r.Meter.Unit.CondominiumID
}

func (r Reading) UnitLabel() string {
	if r.Meter == nil {
		return ""
	}

	return r.Meter.Unit.Label()
}

// ReadingUpdate - тело PATCH при отправке показания.
type ReadingUpdate struct {
	Value   int64  `json:"leitura"`
	PhotoID string `json:"foto_id"`
	Status  string `json:"status"`
}

// ReadingView - представление показания для UI/CLI.
type ReadingView struct {
	ID            int64  `json:"id"`
	Status        string `json:"status"`
	Unit          string `json:"unidade"`
	CondominiumID int64  `json:"condominio_id"`
	Value         *int64 `json:"leitura,omitempty"`
	PreviousValue *int64 `json:"leitura_anterior,omitempty"`
	PhotoID       string `json:"foto_id,omitempty"`
	Created       string `json:"data"`
}

func ReadingViewFrom(r Reading) ReadingView {
	v := ReadingView{
		ID:            r.ID,
		Status:        r.Status,
		Unit:          r.UnitLabel(),
		CondominiumID: r.CondominiumID(),
		Value:         r.Value,
		PreviousValue: r.PreviousValue,
		Created:       FormatDate(r.CreatedAt),
	}
	if r.PhotoID != nil {
		v.PhotoID = *r.PhotoID
	}

	return v
}

// FormatDate - дата в формате dd/mm/yyyy.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return DateUnavailable
	}

	return t.Format("02/01/2006")
}

// FormatValue - числовое показание для отображения.
func FormatValue(v *int64) string {
	if v == nil {
		return "-"
	}

	return strconv.FormatInt(*v, 10)
}
