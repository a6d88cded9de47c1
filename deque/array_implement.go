package deque

const (
	// 数组大小基数
	base = 8
)

// 环形数组，满了之后按两倍扩容
type ArrDeque struct {
	arr []int

	// 队首下标
	start int

	// 元素个数
	size int
}

var _ Deque = (*ArrDeque)(nil)

// 工厂方法
func NewArrDeque(capacity int) *ArrDeque {
	if capacity < base {
		capacity = base
	}
	if remainder := capacity % base; remainder != 0 {
		capacity = capacity - remainder + base
	}
	return &ArrDeque{arr: make([]int, capacity)}
}

func (ad *ArrDeque) Size() int {
	return ad.size
}

func (ad *ArrDeque) Capacity() int {
	return len(ad.arr)
}

func (ad *ArrDeque) Get(i int) int {
	if i < 0 || i >= ad.size {
		panic("index out of length")
	}
	return ad.arr[(ad.start+i)%len(ad.arr)]
}

func (ad *ArrDeque) Traverse(f func(i int, item int)) {
	for i := 0; i < ad.size; i++ {
		f(i, ad.arr[(ad.start+i)%len(ad.arr)])
	}
}

func (ad *ArrDeque) AddLast(item int) {
	if ad.size == len(ad.arr) {
		ad.grow()
	}
	ad.arr[(ad.start+ad.size)%len(ad.arr)] = item
	ad.size++
}

func (ad *ArrDeque) RemoveLast() (int, bool) {
	if ad.size == 0 {
		return 0, false
	}
	ad.size--
	return ad.arr[(ad.start+ad.size)%len(ad.arr)], true
}

func (ad *ArrDeque) AddFirst(item int) {
	if ad.size == len(ad.arr) {
		ad.grow()
	}
	ad.start = (ad.start - 1 + len(ad.arr)) % len(ad.arr)
	ad.arr[ad.start] = item
	ad.size++
}

func (ad *ArrDeque) RemoveFirst() (int, bool) {
	if ad.size == 0 {
		return 0, false
	}
	item := ad.arr[ad.start]
	ad.start = (ad.start + 1) % len(ad.arr)
	ad.size--
	if ad.size == 0 {
		ad.start = 0
	}
	return item, true
}

func (ad *ArrDeque) IsEmpty() bool {
	return ad.size == 0
}

func (ad *ArrDeque) Clear() {
	ad.start, ad.size = 0, 0
}

// 扩容，同时把元素整理到数组开头
func (ad *ArrDeque) grow() {
	arr := make([]int, len(ad.arr)*2)
	for i := 0; i < ad.size; i++ {
		arr[i] = ad.arr[(ad.start+i)%len(ad.arr)]
	}
	ad.arr = arr
	ad.start = 0
}
