package event

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// XML renders p as a single self closing element. The record metadata comes
// first, followed by one attribute per payload name in declaration order.
//
//   <Event Timestamp="10" PID="4" TID="8" EventName="GC/Start" ... Count="5"/>
//
func XML(p Payload) string {
	var buf bytes.Buffer
	WriteXML(&buf, p)
	return buf.String()
}

// WriteXML writes the rendering of XML to w.
func WriteXML(w io.Writer, p Payload) error {
	var buf bytes.Buffer
	rec, d := p.Raw(), p.Descriptor()

	buf.WriteString(`<Event`)
	attr(&buf, `Timestamp`, strconv.FormatInt(rec.Timestamp, 10))
	attr(&buf, `PID`, strconv.FormatUint(uint64(rec.ProcessID), 10))
	attr(&buf, `TID`, strconv.FormatUint(uint64(rec.ThreadID), 10))
	attr(&buf, `EventName`, d.EventName())
	if d.ProviderName != `` {
		attr(&buf, `ProviderName`, d.ProviderName)
	} else {
		attr(&buf, `Provider`, rec.Provider.String())
	}
	attr(&buf, `ID`, strconv.Itoa(int(rec.ID)))
	attr(&buf, `Version`, strconv.Itoa(int(rec.Version)))
	if rec.Invalid() {
		attr(&buf, `Invalid`, `true`)
	}
	for idx, name := range p.Names() {
		attr(&buf, name, FormatValue(p.Value(idx)))
	}
	buf.WriteString(`/>`)

	_, err := w.Write(buf.Bytes())
	return err
}

func attr(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteString(`="`)
	xml.EscapeText(buf, []byte(value))
	buf.WriteByte('"')
}

// FormatValue renders a payload value the way XML does.
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ``
	case string:
		return x
	case []byte:
		return `0x` + hex.EncodeToString(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		if x.IsZero() {
			return ``
		}
		return x.Format(time.RFC3339Nano)
	case uuid.UUID:
		return x.String()
	case fmt.Stringer:
		return x.String()
	case []interface{}:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for idx, e := range x {
			if idx > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(FormatValue(e))
		}
		buf.WriteByte(']')
		return buf.String()
	}
	return fmt.Sprint(v)
}
