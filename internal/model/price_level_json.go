package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"aggregator/pkg/exception"

	"github.com/yanun0323/errors"
)

// UnmarshalJSON accepts an array whose first two elements are either quoted
// or bare numbers, e.g. ["0.075","1.5"] or [0.075,1.5]. Extra elements are ignored.
func (l *PriceLevel) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(exception.ErrParse, "unmarshal price level").With("cause", err.Error())
	}
	if len(pair) < 2 {
		return errors.Wrapf(exception.ErrParse, "price level has %d elements", len(pair))
	}
	price, err := parseNumber(pair[0])
	if err != nil {
		return err
	}
	amount, err := parseNumber(pair[1])
	if err != nil {
		return err
	}
	l.Price, l.Amount = price, amount
	return nil
}

// parseNumber decodes a quoted or bare JSON number; "INF" is +Inf.
func parseNumber(raw []byte) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	if string(raw) == "INF" {
		return math.Inf(1), nil
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, errors.Wrap(exception.ErrParse, "parse number").With("value", string(raw))
	}
	return v, nil
}
