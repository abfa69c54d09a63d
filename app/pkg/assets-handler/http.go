package assetshandler

import (
	"bufio"
	"os"
	"strings"

	"farmer/app/pkg/assert"
)

func ReadUserAgents(path string) ([]string, error) {
	uaFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer uaFile.Close()

	scanner := bufio.NewScanner(uaFile)
	var userAgents []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			userAgents = append(userAgents, line)
		}
	}

	return userAgents, scanner.Err()
}

func GetUAsFromFile(path string) []string {
	assert.Assert(path != "", "user agents file path cannot be empty", assert.AssertData{"path": path})

	userAgents, err := ReadUserAgents(path)
	assert.NoError(err, "error reading user agents file", assert.AssertData{"path": path})

	return userAgents
}
