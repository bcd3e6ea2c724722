package models

type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
)

type DancerStatus string

const (
	StatusInSearch DancerStatus = "IN_SEARCH"
	StatusInPair   DancerStatus = "IN_PAIR"
)

// Dancer — анкета танцора. Поле Status выставляется только жизненным циклом
// пар (принятие заявки / удаление пары), профильные операции его не трогают.
type Dancer struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	SecretName string       `json:"secret_name"`
	Sex        Sex          `json:"sex"`
	Age        *int         `json:"age,omitempty"`
	Height     *float64     `json:"height,omitempty"`
	Style      *string      `json:"style,omitempty"`
	Level      *string      `json:"level,omitempty"`
	Status     DancerStatus `json:"status"`
	PhotoKey   *string      `json:"photo_key,omitempty"`
	PhotoURL   string       `json:"photo_url,omitempty"`
}
