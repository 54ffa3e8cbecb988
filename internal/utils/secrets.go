package utils

import (
	"fmt"
	"os"
	"strings"
)

const secretsDir = "/run/secrets"

// ReadSecret читает Docker-секрет по имени из /run/secrets.
// Если файла нет, пробует переменную окружения <NAME> в верхнем регистре
// (удобно для локальной разработки без Docker Swarm).
func ReadSecret(name string) (string, error) {
	path := fmt.Sprintf("%s/%s", secretsDir, name)
	data, err := os.ReadFile(path)
	if err == nil {
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("секрет '%s' пуст", name)
		}
		return secret, nil
	}

	envName := strings.ToUpper(name)
	if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
		return value, nil
	}

	return "", fmt.Errorf("не удалось прочитать секрет '%s': %w", name, err)
}
