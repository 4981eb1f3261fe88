package cleanup

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const clientIdHeader = "Client ID"

// loadClientIdsFromCsv reads the client id CSV. The file must carry a
// "Client ID" header column; ids are returned in file order and must be unique.
func loadClientIdsFromCsv(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening input file %v: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading csv header from %v: %v", path, err)
	}

	idColumn := -1
	for i, name := range header {
		if strings.TrimSpace(name) == clientIdHeader {
			idColumn = i
			break
		}
	}
	if idColumn == -1 {
		return nil, fmt.Errorf("missing %q column in %v", clientIdHeader, path)
	}

	clientIds := []int64{}
	seenIds := map[int64]bool{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading csv record from %v: %v", path, err)
		}

		clientId, err := strconv.ParseInt(strings.TrimSpace(record[idColumn]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid client id %q on line %v of %v", record[idColumn], line, path)
		}
		if seenIds[clientId] {
			return nil, fmt.Errorf("duplicate client id %v on line %v of %v", clientId, line, path)
		}
		seenIds[clientId] = true
		clientIds = append(clientIds, clientId)
	}

	return clientIds, nil
}
