package vision

import (
	"fmt"
	"os"
	"path/filepath"
)

// ItemDir is the root directory for item files, set at startup.
var ItemDir string = "data/items"

type Dataset struct {
	ID int
	Name string

	// source or computed
	Type string

	DataType DataType
}

type Item struct {
	Dataset Dataset
	Key string
	Ext string
	Format string
	Metadata string
}

func (item Item) Fname() string {
	return filepath.Join(ItemDir, fmt.Sprintf("%d", item.Dataset.ID), item.Key+"."+item.Ext)
}

func (item Item) Mkdir() {
	os.MkdirAll(filepath.Join(ItemDir, fmt.Sprintf("%d", item.Dataset.ID)), 0755)
}

func (item Item) UpdateData(data Data) {
	item.Mkdir()
	file, err := os.Create(item.Fname())
	if err != nil {
		panic(err)
	}
	defer file.Close()
	if err := data.Encode(item.Format, file); err != nil {
		panic(err)
	}
}

func (item Item) LoadData() (Data, error) {
	return DecodeFile(item.Dataset.DataType, item.Format, item.Metadata, item.Fname())
}

func (item Item) Remove() {
	os.Remove(item.Fname())
}

func (ds Dataset) Remove() {
	os.RemoveAll(filepath.Join(ItemDir, fmt.Sprintf("%d", ds.ID)))
}
