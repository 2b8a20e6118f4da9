// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ops 是開發用的任務入口：
//
//	go run ./scripts test          # 只顯示每個套件的 ok / FAIL
//	go run ./scripts test-detail   # verbose，濾掉 [no test files]
//	go run ./scripts bundle-demo   # 以內嵌範例資料跑一次 bundle（輸出到 tmp/gamedata）
//	go run ./scripts dev           # 啟動 cmd/dev
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts [test|test-detail|bundle-demo|dev]")
		os.Exit(1)
	}
	if err := selectTask(os.Args[1]); err != nil {
		PrintRed(err.Error())
		os.Exit(1)
	}
}

func selectTask(task string) error {
	switch task {
	case "test":
		PrintGreen("running tests")
		return stream(summaryLine, "go", "test", "./...", "-cover", "-count=1")
	case "test-detail":
		PrintGreen("running tests (detail)")
		return stream(detailLine, "go", "test", "./...", "-v", "-count=1")
	case "bundle-demo":
		PrintBlue("bundling demo/demo_data/data -> tmp/gamedata")
		return passthrough("go", "run", "./cmd/bundle", "-data", "demo/demo_data/data", "-out", "tmp/gamedata", "-strict")
	case "dev":
		return passthrough("go", "run", "./cmd/dev")
	default:
		return fmt.Errorf("unknown task: %s", task)
	}
}

// lineFilter 決定一行輸出如何顯示；回傳 false 代表略過。
type lineFilter func(line string) bool

// summaryLine 只留 ok / FAIL 與嚴重錯誤，其餘略過。
func summaryLine(line string) bool {
	switch {
	case strings.HasPrefix(line, "ok"):
		PrintGreen(line)
	case strings.HasPrefix(line, "FAIL"):
		PrintRed(line)
	case strings.Contains(line, "build failed"), strings.Contains(line, "setup failed"):
		// 編譯錯誤不以 ok/FAIL 開頭，不留下來會看不出原因
		PrintRed(line)
	default:
		return false
	}
	return true
}

func detailLine(line string) bool {
	switch {
	case strings.Contains(line, "[no test files]"):
		return false
	case strings.HasPrefix(line, "ok"):
		PrintGreen(line)
	case strings.HasPrefix(line, "FAIL"), strings.HasPrefix(line, "--- FAIL"):
		PrintRed(line)
	default:
		fmt.Println(line)
	}
	return true
}

// stream 執行指令並把 stdout+stderr 逐行交給 filter。
func stream(filter lineFilter, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		filter(sc.Text())
	}
	if err := sc.Err(); err != nil {
		PrintYellow("scanner error: " + err.Error())
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s %s finished with errors", name, strings.Join(args, " "))
	}
	return nil
}

func passthrough(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}
