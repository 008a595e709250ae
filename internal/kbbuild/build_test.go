package kbbuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"error-match/internal/kb"
)

const sourceA = `id: invalid_postcode
title: Invalid postal code for carrier
patterns:
  - invalid postcode
  - "postcode .* not valid"
symptoms: Label creation fails with a postcode validation error.
rootCause: The destination postcode does not match the carrier format.
fixSteps:
  - Verify the destination postcode format.
  - Retry label creation.
links:
  - label: carrier docs
    url: https://example.com/postcode
tags:
  - address
`

const sourceB = `id: missing_house_number
title: Missing house number in address
patterns:
  - "house number.*(missing|required)"
fixSteps:
  - Ask the customer for the house number.
`

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("写源文件失败: %v", err)
	}
}

func TestBuildDir(t *testing.T) {
	dir := t.TempDir()
	// 文件名决定条目顺序
	writeSource(t, dir, "20-missing-house-number.yaml", sourceB)
	writeSource(t, dir, "10-invalid-postcode.yaml", sourceA)

	entries, err := BuildDir(dir)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("期望 2 条: got=%d", len(entries))
	}
	if entries[0].ID != "invalid_postcode" || entries[1].ID != "missing_house_number" {
		t.Fatalf("条目顺序应按文件名排序: %+v", entries)
	}
	if len(entries[0].Links) != 1 || entries[0].Links[0].URL != "https://example.com/postcode" {
		t.Fatalf("链接解析失败: %+v", entries[0].Links)
	}
}

func TestBuildDirDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.yaml", sourceA)
	writeSource(t, dir, "b.yaml", sourceA)

	_, err := BuildDir(dir)
	if err == nil {
		t.Fatalf("重复 id 应构建失败")
	}
	if !strings.Contains(err.Error(), "invalid_postcode") {
		t.Fatalf("报错应指明重复 id: %v", err)
	}
}

func TestBuildDirInvalidEntry(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "broken.yaml", "id: broken\ntitle: Broken entry without steps\npatterns:\n  - boom\n")

	_, err := BuildDir(dir)
	if err == nil {
		t.Fatalf("缺必填字段应构建失败")
	}
	if !strings.Contains(err.Error(), "broken.yaml") {
		t.Fatalf("报错应指明源文件: %v", err)
	}
}

func TestBuildDirEmpty(t *testing.T) {
	if _, err := BuildDir(t.TempDir()); err == nil {
		t.Fatalf("空目录应构建失败")
	}
	if _, err := BuildDir("  "); err == nil {
		t.Fatalf("空路径应构建失败")
	}
}

// 构建产物必须能被运行时解码器原样读回
func TestWriteArtifactRoundtrip(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.yaml", sourceA)
	entries, err := BuildDir(dir)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "nested", "kb.json")
	if err := WriteArtifact(entries, outPath); err != nil {
		t.Fatalf("写产物失败: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("读产物失败: %v", err)
	}
	decoded, err := kb.DecodeEntries(data)
	if err != nil {
		t.Fatalf("产物解码失败: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID != "invalid_postcode" {
		t.Fatalf("产物内容不匹配: %+v", decoded)
	}
}

func TestWriteArtifactRejectsInvalid(t *testing.T) {
	bad := []kb.Entry{{ID: "x"}}
	if err := WriteArtifact(bad, filepath.Join(t.TempDir(), "kb.json")); err == nil {
		t.Fatalf("非法条目不应出包")
	}
}
