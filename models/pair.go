package models

import "time"

type Pair struct {
	ID        int       `json:"id"`
	Dancer1ID int       `json:"dancer1_id"`
	Dancer2ID int       `json:"dancer2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PairResponse — проекция пары с полными анкетами обоих танцоров.
type PairResponse struct {
	ID        int       `json:"id"`
	Dancer1   Dancer    `json:"dancer1"`
	Dancer2   Dancer    `json:"dancer2"`
	CreatedAt time.Time `json:"created_at"`
}

// ContainsDancer сообщает, занимает ли танцор один из двух слотов пары.
func (p *Pair) ContainsDancer(dancerID int) bool {
	return p.Dancer1ID == dancerID || p.Dancer2ID == dancerID
}
