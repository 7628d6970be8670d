package export

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Assinaturas e versão dos registros ZIP
const (
	zipLocalHeaderSignature   = 0x04034b50
	zipCentralHeaderSignature = 0x02014b50
	zipEndRecordSignature     = 0x06054b50
	zipVersion                = 20
	zipMethodStore            = 0
)

// ZipEntry é um arquivo armazenado sem compressão
type ZipEntry struct {
	Name    string
	Content []byte
}

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint32 {
	var table [256]uint32
	for i := range table {
		crc := uint32(i)
		for range 8 {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ 0xEDB88320
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}

// CRC32 calcula o CRC-32 com o polinômio refletido 0xEDB88320
func CRC32(data []byte) uint32 {
	crc := ^uint32(0)
	for _, b := range data {
		crc = crcTable[byte(crc)^b] ^ (crc >> 8)
	}
	return ^crc
}

// DOSDateTime converte um instante UTC para os campos de data e hora do MS-DOS.
// Anos anteriores a 1980 são levados para 1980.
func DOSDateTime(t time.Time) (dosTime, dosDate uint16) {
	t = t.UTC()
	year := max(1980, t.Year())
	dosTime = uint16((t.Hour()&0x1F)<<11 | (t.Minute()&0x3F)<<5 | (t.Second()/2)&0x1F)
	dosDate = uint16(((year-1980)&0x7F)<<9 | (int(t.Month())&0x0F)<<5 | t.Day()&0x1F)
	return dosTime, dosDate
}

// CreateZip monta um arquivo ZIP com entradas armazenadas: cabeçalhos locais,
// diretório central e registro de fim de diretório
func CreateZip(entries []ZipEntry, modified time.Time) []byte {
	dosTime, dosDate := DOSDateTime(modified)

	var local, central bytes.Buffer
	le := binary.LittleEndian

	for _, entry := range entries {
		name := []byte(entry.Name)
		checksum := CRC32(entry.Content)
		size := uint32(len(entry.Content))
		offset := uint32(local.Len())

		header := make([]byte, 30)
		le.PutUint32(header[0:], zipLocalHeaderSignature)
		le.PutUint16(header[4:], zipVersion)
		le.PutUint16(header[6:], 0)
		le.PutUint16(header[8:], zipMethodStore)
		le.PutUint16(header[10:], dosTime)
		le.PutUint16(header[12:], dosDate)
		le.PutUint32(header[14:], checksum)
		le.PutUint32(header[18:], size)
		le.PutUint32(header[22:], size)
		le.PutUint16(header[26:], uint16(len(name)))
		le.PutUint16(header[28:], 0)

		local.Write(header)
		local.Write(name)
		local.Write(entry.Content)

		record := make([]byte, 46)
		le.PutUint32(record[0:], zipCentralHeaderSignature)
		le.PutUint16(record[4:], zipVersion)
		le.PutUint16(record[6:], zipVersion)
		le.PutUint16(record[8:], 0)
		le.PutUint16(record[10:], zipMethodStore)
		le.PutUint16(record[12:], dosTime)
		le.PutUint16(record[14:], dosDate)
		le.PutUint32(record[16:], checksum)
		le.PutUint32(record[20:], size)
		le.PutUint32(record[24:], size)
		le.PutUint16(record[28:], uint16(len(name)))
		// extra, comentário, disco, atributos internos e externos ficam zerados
		le.PutUint32(record[42:], offset)

		central.Write(record)
		central.Write(name)
	}

	end := make([]byte, 22)
	le.PutUint32(end[0:], zipEndRecordSignature)
	le.PutUint16(end[8:], uint16(len(entries)))
	le.PutUint16(end[10:], uint16(len(entries)))
	le.PutUint32(end[12:], uint32(central.Len()))
	le.PutUint32(end[16:], uint32(local.Len()))

	out := make([]byte, 0, local.Len()+central.Len()+len(end))
	out = append(out, local.Bytes()...)
	out = append(out, central.Bytes()...)
	return append(out, end...)
}
