package priorityindex

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/redis"
	v9 "github.com/redis/go-redis/v9"
)

// MaxExactPrice is the largest price a sorted-set score represents exactly.
const MaxExactPrice = int64(1) << 53

const membersSuffix = ":members"

// Index is a PriorityIndex over Redis sorted sets.
//
// The score is the price. The member is "<time>:<seq>:<id>" with both numbers
// zero padded to a fixed width, so Redis' byte-wise tie-break on equal scores
// sorts by time then seq. A companion hash "<key>:members" maps id to its
// current member string.
type Index struct {
	client redis.Client
}

var _ orderbookv1.PriorityIndex = (*Index)(nil)

// NewIndex creates a Redis backed index.
func NewIndex(client redis.Client) *Index {
	return &Index{client: client}
}

func encodeMember(memberID string, rank orderbookv1.Rank) (string, error) {
	if rank.Price > MaxExactPrice || rank.Price < -MaxExactPrice {
		return "", errors.NewErrorDetailsWithObject(
			fmt.Sprintf("price %d cannot be ranked exactly", rank.Price),
			string(errors.PriceOutOfRange), "price", rank,
		)
	}
	if rank.Time < 0 {
		return "", errors.NewErrorDetailsWithObject(
			fmt.Sprintf("time %d cannot be ranked", rank.Time),
			string(errors.PriceOutOfRange), "time", rank,
		)
	}
	return fmt.Sprintf("%019d:%020d:%s", rank.Time, rank.Seq, memberID), nil
}

func decodeMember(member string, score float64) (orderbookv1.Entry, error) {
	parts := strings.SplitN(member, ":", 3)
	if len(parts) != 3 {
		return orderbookv1.Entry{}, errors.NewTracer(fmt.Sprintf("malformed index member %q", member))
	}

	t, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return orderbookv1.Entry{}, errors.NewTracer(fmt.Sprintf("malformed index member %q", member)).Wrap(err)
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return orderbookv1.Entry{}, errors.NewTracer(fmt.Sprintf("malformed index member %q", member)).Wrap(err)
	}

	return orderbookv1.Entry{
		MemberID: parts[2],
		Rank: orderbookv1.Rank{
			Price: int64(score),
			Time:  t,
			Seq:   seq,
		},
	}, nil
}

// Upsert inserts memberID or replaces its previous rank.
func (i *Index) Upsert(ctx context.Context, key, memberID string, rank orderbookv1.Rank) error {
	member, err := encodeMember(memberID, rank)
	if err != nil {
		return err
	}

	prev, err := i.client.HGet(ctx, key+membersSuffix, memberID)
	if err != nil {
		return errors.TracerFromError(err)
	}

	_, err = i.client.TxPipelined(ctx, func(pipe v9.Pipeliner) error {
		if prev != "" && prev != member {
			pipe.ZRem(ctx, key, prev)
		}
		pipe.ZAdd(ctx, key, v9.Z{Score: float64(rank.Price), Member: member})
		pipe.HSet(ctx, key+membersSuffix, memberID, member)
		return nil
	})
	if err != nil {
		return errors.TracerFromError(err)
	}

	return nil
}

// Remove deletes memberID and reports whether it was present.
func (i *Index) Remove(ctx context.Context, key, memberID string) (bool, error) {
	member, err := i.client.HGet(ctx, key+membersSuffix, memberID)
	if err != nil {
		return false, errors.TracerFromError(err)
	}
	if member == "" {
		return false, nil
	}

	_, err = i.client.TxPipelined(ctx, func(pipe v9.Pipeliner) error {
		pipe.ZRem(ctx, key, member)
		pipe.HDel(ctx, key+membersSuffix, memberID)
		return nil
	})
	if err != nil {
		return false, errors.TracerFromError(err)
	}

	return true, nil
}

// Lookup returns the entry for memberID if present.
func (i *Index) Lookup(ctx context.Context, key, memberID string) (orderbookv1.Entry, bool, error) {
	member, err := i.client.HGet(ctx, key+membersSuffix, memberID)
	if err != nil {
		return orderbookv1.Entry{}, false, errors.TracerFromError(err)
	}
	if member == "" {
		return orderbookv1.Entry{}, false, nil
	}

	score, found, err := i.client.ZScore(ctx, key, member)
	if err != nil {
		return orderbookv1.Entry{}, false, errors.TracerFromError(err)
	}
	if !found {
		return orderbookv1.Entry{}, false, nil
	}

	entry, err := decodeMember(member, score)
	if err != nil {
		return orderbookv1.Entry{}, false, err
	}
	return entry, true, nil
}

// PeekLowest returns the entry with the smallest rank.
func (i *Index) PeekLowest(ctx context.Context, key string) (orderbookv1.Entry, bool, error) {
	return i.first(i.client.ZRangeWithScores(ctx, key, 0, 0))
}

// PeekHighest returns the entry with the largest rank.
func (i *Index) PeekHighest(ctx context.Context, key string) (orderbookv1.Entry, bool, error) {
	return i.first(i.client.ZRevRangeWithScores(ctx, key, 0, 0))
}

func (i *Index) first(members []v9.Z, err error) (orderbookv1.Entry, bool, error) {
	if err != nil {
		return orderbookv1.Entry{}, false, errors.TracerFromError(err)
	}
	if len(members) == 0 {
		return orderbookv1.Entry{}, false, nil
	}

	member, ok := members[0].Member.(string)
	if !ok {
		return orderbookv1.Entry{}, false, errors.NewTracer(fmt.Sprintf("unexpected index member type %T", members[0].Member))
	}

	entry, err := decodeMember(member, members[0].Score)
	if err != nil {
		return orderbookv1.Entry{}, false, err
	}
	return entry, true, nil
}
