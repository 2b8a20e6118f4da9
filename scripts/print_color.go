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

package main

import "github.com/fatih/color"

// 腳本輸出的顏色；NO_COLOR 或非終端輸出時 color 套件會自動停用
var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	infoColor = color.New(color.FgBlue)
)

func PrintGreen(msg string)  { okColor.Println(msg) }
func PrintRed(msg string)    { failColor.Println(msg) }
func PrintYellow(msg string) { warnColor.Println(msg) }
func PrintBlue(msg string)   { infoColor.Println(msg) }
