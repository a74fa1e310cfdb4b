package main

import "github.com/yungbote/studyforge-backend/internal/cli"

func main() {
	cli.Execute()
}
