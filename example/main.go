package main

import (
	"fmt"

	"github.com/yonwoo9/caskdb"
)

func main() {
	db, err := caskdb.Open("data.db")
	if err != nil {
		panic(err)
	}
	defer db.Close()

	// 存储一个键值对
	if err = db.Set([]byte("key1"), []byte("value1")); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("存储 key1 成功")

	// 获取键对应的值
	value, ok, err := db.Get([]byte("key1"))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("获取 key1:", string(value), ok)

	// 批量存储键值对
	batch := map[string][]byte{
		"key2": []byte("value2"),
		"key3": []byte("value3"),
	}
	if err = db.SetAll(batch); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("批量存储成功")

	// 批量获取键对应的值
	keys := [][]byte{[]byte("key2"), []byte("key3")}
	values, err := db.GetAll(keys)
	if err != nil {
		fmt.Println(err)
		return
	}
	for k, v := range values {
		fmt.Printf("批量获取 key:%s, val:%s\n", k, string(v))
	}

	// 删除一个键
	if _, err = db.Del([]byte("key1")); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("删除 key1 成功")

	// 手动压缩日志
	if err = db.Compact(); err != nil {
		fmt.Println(err)
		return
	}

	// 遍历键
	iterator := db.Iterator()
	for iterator.Next() {
		key := iterator.Key()
		value, ok, err := iterator.Value()
		if err != nil || !ok {
			continue
		}
		fmt.Printf("迭代器 key:%s, val:%s\n", key, string(value))
	}
}
