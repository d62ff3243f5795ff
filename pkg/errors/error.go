package errors

import (
	"bytes"
	"strings"
)

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralRepositoryError represents a generic repository error.
	GeneralRepositoryError ErrorCode = "general_repository_error"

	// InvalidOrder represents a malformed or incomplete order rejected at intake.
	InvalidOrder ErrorCode = "invalid_order"
	// WalletNotFound represents a settlement that references a missing (user, currency) wallet.
	WalletNotFound ErrorCode = "wallet_not_found"
	// InsufficientFunds represents a seller balance lower than the transfer amount.
	InsufficientFunds ErrorCode = "insufficient_funds"
	// BookCacheInconsistency represents a book entry with no live order behind it.
	BookCacheInconsistency ErrorCode = "book_cache_inconsistency"
	// LockTimeout represents a wallet row lock that could not be acquired in time.
	LockTimeout ErrorCode = "lock_timeout"
	// InvalidAmount represents a non-positive transfer amount.
	InvalidAmount ErrorCode = "invalid_amount"
	// BalanceOverflow represents a credit that would overflow the balance column.
	BalanceOverflow ErrorCode = "balance_overflow"
	// UnknownSymbol represents an order for a symbol the engine does not serve.
	UnknownSymbol ErrorCode = "unknown_symbol"
	// EngineStopped represents a submission after the engine has shut down.
	EngineStopped ErrorCode = "engine_stopped"

	// PriceOutOfRange represents a price the sorted-set store cannot rank exactly.
	PriceOutOfRange ErrorCode = "price_out_of_range"

	// KafkaFetchError represents an error when fetching a message from Kafka.
	KafkaFetchError ErrorCode = "kafka_fetch_error"
	// KafkaCommitError represents an error when committing consumed offsets to Kafka.
	KafkaCommitError ErrorCode = "kafka_commit_error"
	// KafkaWriteError represents an error when writing messages to Kafka.
	KafkaWriteError ErrorCode = "kafka_write_error"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisDisconnectionError represents an error when disconnecting from Redis.
	RedisDisconnectionError ErrorCode = "redis_disconnection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisDelError represents an error when deleting a value from Redis.
	RedisDelError ErrorCode = "redis_del_error"
	// RedisHGetError represents an error when getting a field from a hash in Redis.
	RedisHGetError ErrorCode = "redis_hget_error"
	// RedisHSetError represents an error when setting fields in a hash in Redis.
	RedisHSetError ErrorCode = "redis_hset_error"
	// RedisHDelError represents an error when deleting fields from a hash in Redis.
	RedisHDelError ErrorCode = "redis_hdel_error"
	// RedisZAddError represents an error when adding members to a sorted set in Redis.
	RedisZAddError ErrorCode = "redis_zadd_error"
	// RedisZRemError represents an error when removing members from a sorted set in Redis.
	RedisZRemError ErrorCode = "redis_zrem_error"
	// RedisZRangeError represents an error when reading a range of a sorted set in Redis.
	RedisZRangeError ErrorCode = "redis_zrange_error"
	// RedisTxError represents an error when a MULTI/EXEC transaction fails in Redis.
	RedisTxError ErrorCode = "redis_tx_error"
	// RedisSubscribeError represents an error when subscribing to channels in Redis.
	RedisSubscribeError ErrorCode = "redis_subscribe_error"
	// RedisPublishError represents an error when publishing messages to channels in Redis.
	RedisPublishError ErrorCode = "redis_publish_error"
)

// BaseError is an `error` type containing an array of ErrorDetails.
type BaseError struct {
	details []*ErrorDetails
}

// NewBaseError create BaseError with ErrorDetails
func NewBaseError(details ...*ErrorDetails) *BaseError {
	return &BaseError{details: details}
}

// AddErrorDetails add more ErrorDetails to BaseError
func (b *BaseError) AddErrorDetails(errors ...*ErrorDetails) {
	b.details = append(b.details, errors...)
}

// GetDetails get array ErrorDetails on BaseError
func (b *BaseError) GetDetails() []*ErrorDetails {
	return b.details
}

// HasDetails reports whether at least one ErrorDetails was collected.
func (b *BaseError) HasDetails() bool {
	return len(b.details) > 0
}

// Error implement error interface
func (b *BaseError) Error() string {
	buff := bytes.NewBufferString("")

	buff.WriteString("Error on\n")
	for _, err := range b.details {
		buff.WriteString("code: ")
		buff.WriteString(err.Code)
		buff.WriteString("; error: ")
		buff.WriteString(err.Error())
		buff.WriteString("; field: ")
		buff.WriteString(err.Field)
		buff.WriteString("\n")
	}

	return strings.TrimSpace(buff.String())
}

// IsAllCodeEqual check if all ErrorDetails code is equal with given code
func (b *BaseError) IsAllCodeEqual(code string) bool {
	if len(b.details) == 0 {
		return false
	}

	for _, d := range b.GetDetails() {
		if d.Code != code {
			return false
		}
	}
	return true
}

// IsAnyCodeEqual check if any ErrorDetails code is equal with given code
func (b *BaseError) IsAnyCodeEqual(code string) bool {
	for _, d := range b.GetDetails() {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Fields returns the field names that failed, in the order they were added.
func (b *BaseError) Fields() []string {
	fields := make([]string, 0, len(b.details))
	for _, d := range b.details {
		fields = append(fields, d.Field)
	}
	return fields
}
