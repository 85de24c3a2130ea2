package trade

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/newthinker/zella/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encode(t core.Trade) ([]byte, error) {
	return json.Marshal(t)
}

func decode(data []byte) (core.Trade, error) {
	var t core.Trade
	err := json.Unmarshal(data, &t)
	return t, err
}
