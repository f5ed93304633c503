package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bigkaa/carecenter/governance-core/internal/keysource"
)

func TestRun_File(t *testing.T) {
	dir := t.TempDir()
	pub := filepath.Join(dir, "field.pub")
	priv := filepath.Join(dir, "field.key")

	var out bytes.Buffer
	if err := run([]string{"-target", "file", "-public", pub, "-private", priv}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), pub) {
		t.Errorf("вывод не содержит путь ключа: %q", out.String())
	}

	if _, err := keysource.NewFileSource(pub, priv).Load(context.Background()); err != nil {
		t.Errorf("записанные ключи не читаются: %v", err)
	}

	// Повторный запуск не перезаписывает ключи
	if err := run([]string{"-target", "file", "-public", pub, "-private", priv}, &out); err == nil {
		t.Error("ожидалась ошибка при существующих ключах")
	}
}

func TestRun_InvalidTarget(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-target", "s3"}, &out); err == nil {
		t.Fatal("ожидалась ошибка недопустимого target")
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-version"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "field-keygen ") {
		t.Errorf("неожиданный вывод версии: %q", out.String())
	}
}
