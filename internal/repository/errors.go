package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/lib/pq"

	"github.com/hitoshi/episcout/internal/model"
)

// errDBClosedMessage はdatabase/sqlが閉じたDBへの操作で返すエラーの文言。
// 対応するエラー値は公開されていない。
const errDBClosedMessage = "sql: database is closed"

// storeError はストア操作のエラーをラップする。
// 接続系のエラーのみErrStoreUnavailableとして扱い、データエラー等はそのまま内部エラーとして返す。
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectionError(err) {
		return model.StoreError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isConnectionError はエラーがストアへの到達不能を示すかを判定する。
func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if err.Error() == errDBClosedMessage {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08": // connection_exception
			return true
		case pqErr.Code.Class() == "53": // insufficient_resources
			return true
		case pqErr.Code == "57P01", pqErr.Code == "57P02", pqErr.Code == "57P03": // shutdown / cannot_connect_now
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
