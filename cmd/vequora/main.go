// VeQuora 问答平台命令行客户端入口
package main

func main() {
	Execute()
}
