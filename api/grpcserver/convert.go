package grpcserver

import (
	"strconv"

	"seqcell/domain/marketdata"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// -------------------- Converters --------------------

// 64-bit counters travel as decimal strings; a JSON number would lose
// precision above 2^53.
func toStruct(q *marketdata.Quote) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"seq":            strconv.FormatUint(q.Seq, 10),
		"time_unix_nano": strconv.FormatInt(q.Time, 10),
		"symbol":         q.Symbol.String(),
		"bids":           levelsToList(&q.Bids),
		"asks":           levelsToList(&q.Asks),
	})
}

func levelsToList(side *[marketdata.Depth]marketdata.Level) []any {
	levels := marketdata.Levels(side)
	out := make([]any, 0, len(levels))
	for _, l := range levels {
		out = append(out, map[string]any{
			"price": strconv.FormatInt(l.Price, 10),
			"qty":   strconv.FormatInt(l.Qty, 10),
		})
	}
	return out
}

// FromStruct decodes a quote produced by the QuoteFeed service.
func FromStruct(s *structpb.Struct) (marketdata.Quote, error) {
	var q marketdata.Quote
	f := s.GetFields()

	seq, err := strconv.ParseUint(f["seq"].GetStringValue(), 10, 64)
	if err != nil {
		return q, errors.Wrap(err, "seq")
	}
	ts, err := strconv.ParseInt(f["time_unix_nano"].GetStringValue(), 10, 64)
	if err != nil {
		return q, errors.Wrap(err, "time_unix_nano")
	}
	sym, err := marketdata.NewSymbol(f["symbol"].GetStringValue())
	if err != nil {
		return q, errors.Wrap(err, "symbol")
	}
	q.Seq, q.Time, q.Symbol = seq, ts, sym

	if err := listToLevels(f["bids"].GetListValue(), &q.Bids); err != nil {
		return q, errors.Wrap(err, "bids")
	}
	if err := listToLevels(f["asks"].GetListValue(), &q.Asks); err != nil {
		return q, errors.Wrap(err, "asks")
	}
	return q, nil
}

func listToLevels(l *structpb.ListValue, side *[marketdata.Depth]marketdata.Level) error {
	values := l.GetValues()
	if len(values) > marketdata.Depth {
		return errors.Errorf("%d levels, max %d", len(values), marketdata.Depth)
	}
	for i, v := range values {
		lf := v.GetStructValue().GetFields()
		price, err := strconv.ParseInt(lf["price"].GetStringValue(), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "level %d price", i)
		}
		qty, err := strconv.ParseInt(lf["qty"].GetStringValue(), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "level %d qty", i)
		}
		side[i] = marketdata.Level{Price: price, Qty: qty}
	}
	return nil
}
