// 本文件用于知识库构建命令入口 将 YAML 源文件编译为 JSON 文档并做发布前校验

// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package main

import (
	"flag"
	"fmt"
	"os"

	"error-match/internal/kbbuild"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "build":
		if err := runBuild(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			os.Exit(1)
		}
	case "check":
		if err := runCheck(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  kbbuild build -src kb/errors -out internal/kbstore/kb.json")
	fmt.Println("  kbbuild check -src kb/errors")
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	srcDir := fs.String("src", "kb/errors", "yaml source dir")
	outPath := fs.String("out", "kb.json", "output json artifact")
	if err := fs.Parse(args); err != nil {
		return err
	}
	entries, err := kbbuild.BuildDir(*srcDir)
	if err != nil {
		return err
	}
	if err := kbbuild.WriteArtifact(entries, *outPath); err != nil {
		return err
	}
	fmt.Printf("built %d entries -> %s\n", len(entries), *outPath)
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	srcDir := fs.String("src", "kb/errors", "yaml source dir")
	if err := fs.Parse(args); err != nil {
		return err
	}
	entries, err := kbbuild.BuildDir(*srcDir)
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d entries valid\n", len(entries))
	return nil
}
