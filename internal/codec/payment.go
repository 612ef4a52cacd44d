// Package codec serializes the Payment transactions the issuer submits into
// the ledger's canonical binary format.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"xrpl-iou-issuer-go/internal/keys"
)

const transactionTypePayment = 0

var (
	prefixSigning       = []byte{0x53, 0x54, 0x58, 0x00} // STX\0
	prefixTransactionID = []byte{0x54, 0x58, 0x4E, 0x00} // TXN\0
)

// field type codes
const (
	typeUInt16    = 1
	typeUInt32    = 2
	typeAmount    = 6
	typeBlob      = 7
	typeAccountID = 8
)

// Payment is a direct issued currency payment. It carries no Paths or
// SendMax: the issuer delivers from its own obligation, so routing never
// applies.
type Payment struct {
	Account            string
	Destination        string
	Amount             IssuedAmount
	Fee                int64
	Sequence           uint32
	LastLedgerSequence uint32
	Flags              uint32
	SigningPubKey      []byte
	TxnSignature       []byte
}

// Signer produces a transaction signature over signing data.
type Signer interface {
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)
}

// Serialize encodes the payment in canonical field order. The signature is
// omitted when withSignature is false.
func (p *Payment) Serialize(withSignature bool) ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, typeUInt16, 2)
	writeUint16(&buf, transactionTypePayment)

	writeHeader(&buf, typeUInt32, 2)
	writeUint32(&buf, p.Flags)
	writeHeader(&buf, typeUInt32, 4)
	writeUint32(&buf, p.Sequence)
	if p.LastLedgerSequence != 0 {
		writeHeader(&buf, typeUInt32, 27)
		writeUint32(&buf, p.LastLedgerSequence)
	}

	amount, err := EncodeIssuedAmount(p.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	writeHeader(&buf, typeAmount, 1)
	buf.Write(amount)

	fee, err := EncodeDrops(p.Fee)
	if err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}
	writeHeader(&buf, typeAmount, 8)
	buf.Write(fee)

	writeHeader(&buf, typeBlob, 3)
	writeVL(&buf, p.SigningPubKey)
	if withSignature && len(p.TxnSignature) > 0 {
		writeHeader(&buf, typeBlob, 4)
		writeVL(&buf, p.TxnSignature)
	}

	account, err := decodeAccount(p.Account)
	if err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}
	writeHeader(&buf, typeAccountID, 1)
	writeVL(&buf, account)

	destination, err := decodeAccount(p.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	writeHeader(&buf, typeAccountID, 3)
	writeVL(&buf, destination)

	return buf.Bytes(), nil
}

// SigningData is the byte string a signer signs.
func (p *Payment) SigningData() ([]byte, error) {
	body, err := p.Serialize(false)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, prefixSigning...), body...), nil
}

// Sign fills SigningPubKey and TxnSignature and returns the hex blob ready
// for submission together with the transaction hash.
func (p *Payment) Sign(signer Signer) (string, string, error) {
	p.SigningPubKey = signer.PublicKey()
	p.TxnSignature = nil

	data, err := p.SigningData()
	if err != nil {
		return "", "", err
	}
	sig, err := signer.Sign(data)
	if err != nil {
		return "", "", fmt.Errorf("unable to sign payment: %w", err)
	}
	p.TxnSignature = sig

	blob, err := p.Serialize(true)
	if err != nil {
		return "", "", err
	}
	return strings.ToUpper(hex.EncodeToString(blob)), TransactionID(blob), nil
}

// TransactionID is SHA-512Half over the TXN prefix and the signed blob.
func TransactionID(blob []byte) string {
	return strings.ToUpper(hex.EncodeToString(keys.SHA512Half(prefixTransactionID, blob)))
}

func decodeAccount(address string) ([]byte, error) {
	if address == "" {
		return nil, errors.New("empty address")
	}
	return keys.DecodeAddress(address)
}

func writeHeader(buf *bytes.Buffer, typeCode, fieldCode int) {
	switch {
	case typeCode < 16 && fieldCode < 16:
		buf.WriteByte(byte(typeCode<<4 | fieldCode))
	case typeCode < 16:
		buf.WriteByte(byte(typeCode << 4))
		buf.WriteByte(byte(fieldCode))
	case fieldCode < 16:
		buf.WriteByte(byte(fieldCode))
		buf.WriteByte(byte(typeCode))
	default:
		buf.WriteByte(0)
		buf.WriteByte(byte(typeCode))
		buf.WriteByte(byte(fieldCode))
	}
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// writeVL writes a length prefixed blob.
func writeVL(buf *bytes.Buffer, data []byte) {
	n := len(data)
	switch {
	case n <= 192:
		buf.WriteByte(byte(n))
	case n <= 12480:
		n -= 193
		buf.WriteByte(byte(193 + n>>8))
		buf.WriteByte(byte(n & 0xFF))
	default:
		n -= 12481
		buf.WriteByte(byte(241 + n>>16))
		buf.WriteByte(byte(n >> 8 & 0xFF))
		buf.WriteByte(byte(n & 0xFF))
	}
	buf.Write(data)
}
